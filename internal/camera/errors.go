package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Capture outside the ready state.
	ErrNotReady = errors.New("camera is not ready")
	// ErrInvalidImage is returned when the encoded frame is empty or too
	// small to be a real picture.
	ErrInvalidImage = errors.New("invalid image produced")
	// ErrNoStream is returned by PlayRetry when no stream is attached.
	ErrNoStream = errors.New("no active stream")
	// ErrSuperseded is returned by Start when a concurrent Start or Stop
	// replaced the acquisition in flight.
	ErrSuperseded = errors.New("camera acquisition superseded")
)

// ErrorKind classifies device failures.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindNotFound         ErrorKind = "device-not-found"
	KindBusy             ErrorKind = "device-busy"
	KindOverconstrained  ErrorKind = "constraints-unsatisfiable"
	KindUnavailable      ErrorKind = "generic-unavailable"
	KindPlayback         ErrorKind = "playback-failed"
)

var messages = map[ErrorKind]string{
	KindPermissionDenied: "카메라 권한이 거부되었습니다. 브라우저 설정에서 카메라 권한을 허용해주세요.",
	KindNotFound:         "카메라를 찾을 수 없습니다. 카메라가 연결되어 있는지 확인해주세요.",
	KindBusy:             "카메라가 다른 애플리케이션에서 사용 중입니다.",
	KindOverconstrained:  "요청한 카메라 설정을 지원하지 않습니다.",
	KindUnavailable:      "카메라에 접근할 수 없습니다.",
	KindPlayback:         "비디오 재생 중 오류가 발생했습니다.",
}

// DeviceError is a classified device failure. Every kind is recoverable by
// calling Start again.
type DeviceError struct {
	Kind ErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text for the failure.
func (e *DeviceError) Message() string {
	return messages[e.Kind]
}

// MediaError is a device-access failure carrying a DOM-style error name
// such as NotAllowedError.
type MediaError struct {
	ErrName string
	Msg     string
}

// NewMediaError creates a MediaError.
func NewMediaError(name, msg string) *MediaError {
	return &MediaError{ErrName: name, Msg: msg}
}

func (e *MediaError) Error() string {
	if e.Msg == "" {
		return e.ErrName
	}
	return e.ErrName + ": " + e.Msg
}

// Name is the discriminator used by Classify.
func (e *MediaError) Name() string {
	return e.ErrName
}

// Classify maps an acquisition error to a DeviceError using the error's
// Name() when it has one.
func Classify(err error) *DeviceError {
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}

	var named interface{ Name() string }
	if !errors.As(err, &named) {
		return &DeviceError{Kind: KindUnavailable, Err: err}
	}

	switch named.Name() {
	case "NotAllowedError":
		return &DeviceError{Kind: KindPermissionDenied, Err: err}
	case "NotFoundError":
		return &DeviceError{Kind: KindNotFound, Err: err}
	case "NotReadableError":
		return &DeviceError{Kind: KindBusy, Err: err}
	case "OverconstrainedError":
		return &DeviceError{Kind: KindOverconstrained, Err: err}
	default:
		return &DeviceError{Kind: KindUnavailable, Err: err}
	}
}
