package camera

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not allowed", NewMediaError("NotAllowedError", "denied"), KindPermissionDenied},
		{"not found", NewMediaError("NotFoundError", ""), KindNotFound},
		{"not readable", NewMediaError("NotReadableError", ""), KindBusy},
		{"overconstrained", NewMediaError("OverconstrainedError", ""), KindOverconstrained},
		{"unknown name", NewMediaError("AbortError", ""), KindUnavailable},
		{"plain error", errors.New("boom"), KindUnavailable},
		{"wrapped", fmt.Errorf("acquire: %w", NewMediaError("NotFoundError", "")), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := Classify(tt.err)
			assert.Equal(t, tt.want, de.Kind)
			assert.NotEmpty(t, de.Message())
			assert.ErrorIs(t, de, tt.err)
		})
	}
}

func TestDeviceErrorMessagesDistinct(t *testing.T) {
	seen := map[string]ErrorKind{}
	for _, kind := range []ErrorKind{KindPermissionDenied, KindNotFound, KindBusy, KindOverconstrained, KindUnavailable} {
		msg := (&DeviceError{Kind: kind}).Message()
		assert.NotEmpty(t, msg)
		_, dup := seen[msg]
		assert.False(t, dup, "message for %s is not distinct", kind)
		seen[msg] = kind
	}
}
