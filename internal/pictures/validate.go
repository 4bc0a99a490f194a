// Package pictures validates raw picture payloads and runs the one-shot
// ingestion listener that relays uploads straight to the engine.
package pictures

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"
)

// MaxPictureBytes bounds one picture payload.
const MaxPictureBytes = 8 << 20

var (
	ErrTooLarge   = errors.New("picture too large")
	ErrNotAnImage = errors.New("payload is not a decodable image")
)

// Validate checks that data is a plausible JPEG or PNG by decoding the image
// header. It does not decode pixels; the engine owns any further processing.
func Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrNotAnImage)
	}
	if len(data) > MaxPictureBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return nil
}
