package journal

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidPhoto is returned for photo data that is not a base64 image.
var ErrInvalidPhoto = errors.New("invalid photo data")

// EncodeDataURL wraps JPEG bytes in the data URL stored by the web client.
func EncodeDataURL(jpeg []byte) string {
	return encodeDataURL("image/jpeg", jpeg)
}

func encodeDataURL(mime string, raw []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// DecodeDataURL returns the image bytes of a data URL. Bare base64 is
// accepted as JPEG.
func DecodeDataURL(s string) ([]byte, string, error) {
	mime := "image/jpeg"
	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", ErrInvalidPhoto
		}
		mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
		if !isBase64 || !strings.HasPrefix(mediaType, "image/") {
			return nil, "", ErrInvalidPhoto
		}
		mime = mediaType
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) == 0 {
		return nil, "", ErrInvalidPhoto
	}
	return raw, mime, nil
}
