package journal

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/ortho-diary/internal/camera"
	"github.com/dgellow/ortho-diary/internal/storage"
)

func newTestService(now time.Time) (*Service, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	s := NewService(store)
	s.now = func() time.Time { return now }
	return s, store
}

func testFrame(t *testing.T) camera.Frame {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	data, err := camera.EncodeJPEG(src, 160, 120)
	require.NoError(t, err)
	return camera.Frame{Data: data, Width: 160, Height: 120, Caption: "교정 1주차"}
}

func TestSink_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC))
	frame := testFrame(t)

	id, err := s.Sink("kakao_42").SaveFrame(ctx, frame)
	require.NoError(t, err)

	photo, err := s.Get(ctx, "kakao_42", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.Data, "data:image/jpeg;base64,"))
	assert.Equal(t, "교정 1주차", photo.Memo)
	assert.False(t, photo.IsStarred)

	raw, mime, err := DecodeDataURL(photo.Data)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, frame.Data, raw, "stored bytes must match the captured encoding")

	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	original, err := jpeg.Decode(bytes.NewReader(frame.Data))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestSave_Validation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(time.Now())

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty", "", ErrInvalidPhoto},
		{"not base64", "data:image/jpeg;base64,@@@", ErrInvalidPhoto},
		{"not an image", "data:text/plain;base64,aGVsbG8=", ErrInvalidPhoto},
		{"no comma", "data:image/jpeg;base64", ErrInvalidPhoto},
		{"too large", EncodeDataURL(make([]byte, MaxPhotoSize)), ErrPhotoTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(ctx, "u", tt.data, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	photo, err := s.Save(ctx, "u", "aGVsbG8=", "bare base64")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", photo.Data)
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(time.Now())

	photo, err := s.Save(ctx, "kakao_1", "aGVsbG8=", "")
	require.NoError(t, err)

	_, err = s.Get(ctx, "naver_1", photo.ID)
	assert.ErrorIs(t, err, storage.ErrPhotoNotFound)

	starred := true
	_, err = s.Update(ctx, "naver_1", photo.ID, storage.PhotoUpdate{IsStarred: &starred})
	assert.ErrorIs(t, err, storage.ErrPhotoNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "naver_1", photo.ID), storage.ErrPhotoNotFound)

	_, err = s.Get(ctx, "kakao_1", photo.ID)
	assert.NoError(t, err)
}

func TestUpdateListDelete(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService(time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC))

	first, err := s.Save(ctx, "u", "aGVsbG8=", "")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 4, 3, 10, 0, 0, 0, time.UTC) }
	second, err := s.Save(ctx, "u", "aGVsbG8=", "")
	require.NoError(t, err)

	memo := "잇몸 붓기"
	starred := true
	updated, err := s.Update(ctx, "u", first.ID, storage.PhotoUpdate{Memo: &memo, IsStarred: &starred})
	require.NoError(t, err)
	assert.Equal(t, memo, updated.Memo)
	assert.True(t, updated.IsStarred)

	all, err := s.List(ctx, "u", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	starredOnly, err := s.List(ctx, "u", true)
	require.NoError(t, err)
	require.Len(t, starredOnly, 1)
	assert.Equal(t, first.ID, starredOnly[0].ID)

	require.NoError(t, s.Delete(ctx, "u", first.ID))
	all, err = s.List(ctx, "u", false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = store.GetPhoto(ctx, first.ID)
	assert.ErrorIs(t, err, storage.ErrPhotoNotFound)
}
