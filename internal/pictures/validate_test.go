package pictures

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidate_AcceptsRealImages(t *testing.T) {
	require.NoError(t, Validate(encodePNG(t)))
	require.NoError(t, Validate(encodeJPEG(t)))
}

func TestValidate_RejectsGarbage(t *testing.T) {
	require.ErrorIs(t, Validate(nil), ErrNotAnImage)
	require.ErrorIs(t, Validate([]byte{}), ErrNotAnImage)
	require.ErrorIs(t, Validate([]byte("<html>not a picture</html>")), ErrNotAnImage)
}

func TestValidate_RejectsOversizedPayload(t *testing.T) {
	require.ErrorIs(t, Validate(make([]byte, MaxPictureBytes+1)), ErrTooLarge)
}
