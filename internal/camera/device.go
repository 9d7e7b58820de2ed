package camera

import (
	"context"
	"fmt"
	"image"
)

// Constraints describes the requested video source. Zero values mean no
// preference.
type Constraints struct {
	FacingMode  string
	IdealWidth  int
	IdealHeight int
}

func (c Constraints) String() string {
	switch {
	case c.FacingMode == "" && c.IdealWidth == 0:
		return "any"
	case c.IdealWidth == 0:
		return "facing=" + c.FacingMode
	default:
		return fmt.Sprintf("facing=%s %dx%d", c.FacingMode, c.IdealWidth, c.IdealHeight)
	}
}

// ConstraintProfiles are tried in order until one yields a stream. Strict
// profiles fail on many devices, so the list degrades to any camera.
var ConstraintProfiles = []Constraints{
	{FacingMode: "user", IdealWidth: DefaultWidth, IdealHeight: DefaultHeight},
	{FacingMode: "user"},
	{},
}

// MediaDevices grants access to capture devices.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live device stream. Stop releases every underlying track and
// must be safe to call more than once.
type Stream interface {
	Stop()
}

// ReadyState mirrors the media element readiness levels.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// SinkSnapshot is the observable state of a video sink.
type SinkSnapshot struct {
	VideoWidth     int
	VideoHeight    int
	RenderedWidth  int
	RenderedHeight int
	ReadyState     ReadyState
	HasStream      bool
}

// VideoSink renders an attached stream.
type VideoSink interface {
	Attach(s Stream)
	Detach()
	Play(ctx context.Context) error
	Paused() bool
	Snapshot() SinkSnapshot
	CurrentFrame() (image.Image, error)
}

// Frame is an encoded still image.
type Frame struct {
	ID      string
	Data    []byte
	Width   int
	Height  int
	Caption string
}

// FrameSink persists captured frames and returns the assigned identifier.
type FrameSink interface {
	SaveFrame(ctx context.Context, f Frame) (string, error)
}

// Event is a normalized sink notification fed to Machine.Notify.
type Event int

const (
	EventLoadedMetadata Event = iota
	EventLoadedData
	EventCanPlay
	EventPlaying
	EventReadyTimeout
	EventSinkError
)

func (e Event) String() string {
	switch e {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventLoadedData:
		return "loadeddata"
	case EventCanPlay:
		return "canplay"
	case EventPlaying:
		return "playing"
	case EventReadyTimeout:
		return "ready-timeout"
	case EventSinkError:
		return "sink-error"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}
