package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// length-prefixed JSON framing: [u32 big-endian len][json bytes]

// MaxFrameSize bounds a single frame. Picture request payloads are the only
// large frames; anything beyond this is treated as a corrupt stream.
const MaxFrameSize = 32 << 20

var (
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
	ErrVersionMismatch = errors.New("unsupported protocol version")
)

// WriteFrame writes one length-prefixed frame. The prefix and payload go out
// in a single Write so the call is safe on synchronous transports.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame. Any framing problem, including an
// oversized prefix, is a connection-level error; callers do not resynchronize.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// EncodeRequest marshals a request, stamping the schema version.
func EncodeRequest(req Request) ([]byte, error) {
	req.V = Version
	return json.Marshal(req)
}

// DecodeRequest unmarshals a request and rejects frames from a different
// schema version.
func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("decoding request: %w", err)
	}
	if req.V != Version {
		return Request{}, fmt.Errorf("%w: got v%d, want v%d", ErrVersionMismatch, req.V, Version)
	}
	return req, nil
}

// EncodeNotification marshals a notification, stamping the schema version.
func EncodeNotification(n Notification) ([]byte, error) {
	n.V = Version
	return json.Marshal(n)
}

// DecodeNotification unmarshals a notification and rejects frames from a
// different schema version.
func DecodeNotification(payload []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return Notification{}, fmt.Errorf("decoding notification: %w", err)
	}
	if n.V != Version {
		return Notification{}, fmt.Errorf("%w: got v%d, want v%d", ErrVersionMismatch, n.V, Version)
	}
	return n, nil
}

// ReadRequest reads and decodes the next client request frame.
func ReadRequest(r *bufio.Reader) (Request, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Request{}, err
	}
	return DecodeRequest(payload)
}

// WriteNotification encodes and writes one notification frame.
func WriteNotification(w io.Writer, n Notification) error {
	payload, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// WriteRequest encodes and writes one request frame. The bridge itself only
// reads requests; this is the client half of the codec, used by tests.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadNotification reads and decodes the next notification frame. Client half
// of the codec, used by tests.
func ReadNotification(r *bufio.Reader) (Notification, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Notification{}, err
	}
	return DecodeNotification(payload)
}
