package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/dgellow/ortho-diary/internal/log"
)

// State is the acquisition state.
type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateReady     State = "ready"
	StateCapturing State = "capturing"
	StateError     State = "error"
)

const (
	// ReadyTimeout forces the ready state when the sink never reports
	// readiness.
	ReadyTimeout = 2 * time.Second
	// ResumeDelay is the wait after resuming a paused sink before drawing.
	ResumeDelay = 300 * time.Millisecond

	DefaultWidth  = 640
	DefaultHeight = 480

	// JPEGQuality is the fixed encoding quality of captured frames.
	JPEGQuality = 90
	// MinDataURLLength is the shortest JPEG data URL accepted as a real
	// picture. Blank or failed draws encode below it.
	MinDataURLLength = 1000

	jpegDataURLPrefix = "data:image/jpeg;base64,"
)

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithAfterFunc replaces time.AfterFunc for the readiness timer.
func WithAfterFunc(fn func(d time.Duration, f func()) Timer) Option {
	return func(m *Machine) { m.afterFunc = fn }
}

// WithSleep replaces the resume wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Machine) { m.sleep = fn }
}

// Machine is the camera acquisition state machine. It owns at most one
// stream at a time and releases it on every exit path.
type Machine struct {
	devices MediaDevices
	sink    VideoSink
	frames  FrameSink

	afterFunc func(d time.Duration, f func()) Timer
	sleep     func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	state       State
	stream      Stream
	timer       Timer
	lastErr     *DeviceError
	forcedReady bool
	generation  uint64
	changed     chan struct{}
}

// NewMachine creates an idle machine.
func NewMachine(devices MediaDevices, sink VideoSink, frames FrameSink, opts ...Option) *Machine {
	m := &Machine{
		devices: devices,
		sink:    sink,
		frames:  frames,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		sleep:   sleepContext,
		state:   StateIdle,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the failure that put the machine in the error state.
func (m *Machine) LastError() *DeviceError {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ForcedReady reports whether readiness came from the timeout rather than
// a sink signal. Such a stream may still have no usable frames.
func (m *Machine) ForcedReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forcedReady
}

// setStateLocked transitions and wakes WaitReady callers.
func (m *Machine) setStateLocked(s State) {
	if m.state == s {
		return
	}
	log.LogTraceWithFields("camera", "State transition", map[string]any{
		"from": string(m.state),
		"to":   string(s),
	})
	m.state = s
	close(m.changed)
	m.changed = make(chan struct{})
}

// releaseLocked stops the readiness timer and the stream.
func (m *Machine) releaseLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.stream != nil {
		m.sink.Detach()
		m.stream.Stop()
		m.stream = nil
	}
	m.forcedReady = false
}

// Start acquires a stream, releasing any prior one first. It is accepted
// from every state.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	m.releaseLocked()
	m.generation++
	gen := m.generation
	m.lastErr = nil
	m.setStateLocked(StateAcquiring)
	m.mu.Unlock()

	stream, err := m.acquire(ctx)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		return ErrSuperseded
	}
	if err != nil {
		de := Classify(err)
		m.lastErr = de
		m.setStateLocked(StateError)
		m.mu.Unlock()
		log.LogWarnWithFields("camera", "Camera acquisition failed", map[string]any{
			"kind":  string(de.Kind),
			"error": err.Error(),
		})
		return de
	}

	m.stream = stream
	m.sink.Attach(stream)
	m.timer = m.afterFunc(ReadyTimeout, func() {
		m.notify(gen, EventReadyTimeout)
	})
	m.mu.Unlock()

	// Autoplay may be refused. Readiness is still reached through sink
	// events or the timeout.
	if err := m.sink.Play(ctx); err != nil {
		log.LogDebugWithFields("camera", "Autoplay failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		m.notify(gen, EventPlaying)
	}
	return nil
}

func (m *Machine) acquire(ctx context.Context) (Stream, error) {
	var lastErr error
	for _, c := range ConstraintProfiles {
		stream, err := m.devices.GetUserMedia(ctx, c)
		if err == nil {
			log.LogDebugWithFields("camera", "Acquired stream", map[string]any{
				"constraints": c.String(),
			})
			return stream, nil
		}
		log.LogDebugWithFields("camera", "Constraint profile failed", map[string]any{
			"constraints": c.String(),
			"error":       err.Error(),
		})
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no constraint profiles")
	}
	return nil, lastErr
}

// Notify feeds a sink event into the machine.
func (m *Machine) Notify(ev Event) {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	m.notify(gen, ev)
}

// notify is the single transition function for sink events. Events from
// a previous generation are dropped.
func (m *Machine) notify(gen uint64, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}

	switch ev {
	case EventSinkError:
		if m.state == StateIdle || m.state == StateError {
			return
		}
		m.releaseLocked()
		m.lastErr = &DeviceError{Kind: KindPlayback}
		m.setStateLocked(StateError)
	case EventReadyTimeout:
		m.timer = nil
		if m.state != StateAcquiring {
			return
		}
		log.LogWarnWithFields("camera", "No readiness signal, forcing ready", map[string]any{
			"timeout": ReadyTimeout.String(),
		})
		m.forcedReady = true
		m.setStateLocked(StateReady)
	default:
		if m.state != StateAcquiring || !isReady(m.sink.Snapshot()) {
			return
		}
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}
		log.LogDebugWithFields("camera", "Video ready", map[string]any{
			"event": ev.String(),
		})
		m.setStateLocked(StateReady)
	}
}

// isReady accepts any of the signals browsers emit inconsistently.
func isReady(s SinkSnapshot) bool {
	switch {
	case s.VideoWidth > 0 && s.VideoHeight > 0:
		return true
	case s.ReadyState >= HaveMetadata && s.HasStream:
		return true
	case s.HasStream && s.ReadyState >= HaveCurrentData:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the machine leaves the acquiring state. It
// returns nil once ready and the device error when acquisition failed.
func (m *Machine) WaitReady(ctx context.Context) error {
	for {
		m.mu.Lock()
		state, changed, lastErr := m.state, m.changed, m.lastErr
		m.mu.Unlock()

		switch state {
		case StateReady:
			return nil
		case StateError:
			return lastErr
		case StateIdle:
			return ErrNotReady
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PlayRetry retries playback without changing state.
func (m *Machine) PlayRetry(ctx context.Context) error {
	m.mu.Lock()
	hasStream := m.stream != nil
	gen := m.generation
	m.mu.Unlock()

	if !hasStream {
		return ErrNoStream
	}
	if err := m.sink.Play(ctx); err != nil {
		return fmt.Errorf("retrying playback: %w", err)
	}
	m.notify(gen, EventPlaying)
	return nil
}

// Capture draws the current frame, encodes it and hands it to the frame
// sink. On success the stream is released and the machine returns to idle.
// Encoding and persistence failures leave it ready.
func (m *Machine) Capture(ctx context.Context, caption string) (Frame, error) {
	m.mu.Lock()
	if m.state != StateReady {
		m.mu.Unlock()
		return Frame{}, ErrNotReady
	}
	gen := m.generation
	m.setStateLocked(StateCapturing)
	m.mu.Unlock()

	frame, err := m.drawFrame(ctx)
	if err != nil {
		m.finishCapture(gen, false)
		return Frame{}, err
	}
	frame.Caption = caption

	id, err := m.frames.SaveFrame(ctx, frame)
	if err != nil {
		m.finishCapture(gen, false)
		return Frame{}, fmt.Errorf("saving frame: %w", err)
	}
	frame.ID = id

	m.finishCapture(gen, true)
	log.LogInfoWithFields("camera", "Frame captured", map[string]any{
		"id":     id,
		"width":  frame.Width,
		"height": frame.Height,
		"bytes":  len(frame.Data),
	})
	return frame, nil
}

func (m *Machine) finishCapture(gen uint64, saved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A Stop during capture already released everything.
	if gen != m.generation || m.state != StateCapturing {
		return
	}
	if saved {
		m.releaseLocked()
		m.generation++
		m.setStateLocked(StateIdle)
		return
	}
	m.setStateLocked(StateReady)
}

func (m *Machine) drawFrame(ctx context.Context) (Frame, error) {
	if m.sink.Paused() {
		if err := m.sink.Play(ctx); err != nil {
			log.LogWarnWithFields("camera", "Resume failed, capturing current frame", map[string]any{
				"error": err.Error(),
			})
		} else if err := m.sleep(ctx, ResumeDelay); err != nil {
			return Frame{}, err
		}
	}

	src, err := m.sink.CurrentFrame()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	w, h := CaptureSize(m.sink.Snapshot())
	data, err := EncodeJPEG(src, w, h)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, Width: w, Height: h}, nil
}

// CaptureSize picks the raster size: native video size, then rendered
// size, then the default.
func CaptureSize(s SinkSnapshot) (int, int) {
	w, h := s.VideoWidth, s.VideoHeight
	if w <= 0 || h <= 0 {
		w, h = s.RenderedWidth, s.RenderedHeight
	}
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	return w, h
}

// EncodeJPEG draws src into a w x h raster and encodes it. The output is
// deterministic for a given source and size.
func EncodeJPEG(src image.Image, w, h int) ([]byte, error) {
	if src == nil {
		return nil, ErrInvalidImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	if tooSmall(buf.Len()) {
		return nil, ErrInvalidImage
	}
	return buf.Bytes(), nil
}

// tooSmall reports whether n encoded bytes make a data URL shorter than
// MinDataURLLength.
func tooSmall(n int) bool {
	return len(jpegDataURLPrefix)+base64.StdEncoding.EncodedLen(n) < MinDataURLLength
}

// Stop releases the stream and returns to idle. It never fails and is a
// no-op when nothing is active.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	m.generation++
	m.lastErr = nil
	m.setStateLocked(StateIdle)
}
