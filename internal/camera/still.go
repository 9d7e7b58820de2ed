package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"sync"
)

// StillImageDevice serves a single image file as a camera. It lets the
// capture pipeline run where no live device exists.
type StillImageDevice struct {
	path string
}

// NewStillImageDevice creates a device backed by the image at path.
func NewStillImageDevice(path string) *StillImageDevice {
	return &StillImageDevice{path: path}
}

// GetUserMedia decodes the image. The file plays the role of any camera,
// so every constraint profile is satisfied.
func (d *StillImageDevice) GetUserMedia(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewMediaError("NotFoundError", err.Error())
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, NewMediaError("NotAllowedError", err.Error())
		}
		return nil, NewMediaError("NotReadableError", err.Error())
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, NewMediaError("NotReadableError", fmt.Sprintf("decoding %s: %v", d.path, err))
	}
	return &stillStream{img: img}, nil
}

type stillStream struct {
	mu      sync.Mutex
	img     image.Image
	stopped bool
}

func (s *stillStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *stillStream) frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, !s.stopped
}

// StillImageSink is a VideoSink for streams from StillImageDevice.
type StillImageSink struct {
	mu     sync.Mutex
	stream *stillStream
}

// NewStillImageSink creates an empty sink.
func NewStillImageSink() *StillImageSink {
	return &StillImageSink{}
}

func (s *StillImageSink) Attach(st Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream, _ = st.(*stillStream)
}

func (s *StillImageSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
}

func (s *StillImageSink) Play(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return ErrNoStream
	}
	return nil
}

func (s *StillImageSink) Paused() bool {
	return false
}

func (s *StillImageSink) Snapshot() SinkSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return SinkSnapshot{}
	}
	img, live := s.stream.frame()
	if !live {
		return SinkSnapshot{}
	}
	b := img.Bounds()
	return SinkSnapshot{
		VideoWidth:     b.Dx(),
		VideoHeight:    b.Dy(),
		RenderedWidth:  b.Dx(),
		RenderedHeight: b.Dy(),
		ReadyState:     HaveEnoughData,
		HasStream:      true,
	}
}

func (s *StillImageSink) CurrentFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil, ErrNoStream
	}
	img, live := s.stream.frame()
	if !live {
		return nil, ErrNoStream
	}
	return img, nil
}
