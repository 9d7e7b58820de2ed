package camera

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, gradient(w, h)))
	return path
}

func TestStillImageDevice_Capture(t *testing.T) {
	frames := &fakeFrames{}
	m := NewMachine(NewStillImageDevice(writePNG(t, 200, 150)), NewStillImageSink(), frames)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.WaitReady(ctx))

	frame, err := m.Capture(ctx, "from file")
	require.NoError(t, err)
	assert.Equal(t, 200, frame.Width)
	assert.Equal(t, 150, frame.Height)
	assert.Equal(t, StateIdle, m.State())
	require.Len(t, frames.frames, 1)
}

func TestStillImageDevice_Missing(t *testing.T) {
	m := NewMachine(NewStillImageDevice(filepath.Join(t.TempDir(), "missing.jpg")), NewStillImageSink(), &fakeFrames{})

	err := m.Start(context.Background())
	var de *DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindNotFound, de.Kind)
	assert.Equal(t, StateError, m.State())
}

func TestStillImageDevice_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o600))

	m := NewMachine(NewStillImageDevice(path), NewStillImageSink(), &fakeFrames{})
	err := m.Start(context.Background())
	var de *DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindBusy, de.Kind)
}
