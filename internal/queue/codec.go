package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/snappy"
)

// Codec transforms payloads on their way to and from the transport.
// Consumers must be configured with the same codec as the publisher.
type Codec interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// NewCodec resolves a configured compression name. "" and "none" leave
// payloads untouched.
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return identityCodec{}, nil
	case "snappy":
		return SnappyCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s (supported: none, snappy)", name)
	}
}

type identityCodec struct{}

func (identityCodec) Name() string                       { return "none" }
func (identityCodec) Encode(data []byte) ([]byte, error) { return data, nil }
func (identityCodec) Decode(data []byte) ([]byte, error) { return data, nil }

// SnappyCodec compresses payloads with the Snappy block format
type SnappyCodec struct{}

// Name returns "snappy"
func (SnappyCodec) Name() string { return "snappy" }

// Encode compresses data. Empty payloads stay empty.
func (SnappyCodec) Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decode reverses Encode
func (SnappyCodec) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return out, nil
}

// encodingPublisher encodes every payload before handing it on
type encodingPublisher struct {
	Publisher
	codec Codec
}

// WithCodec wraps p so every payload is encoded with c
func WithCodec(p Publisher, c Codec) Publisher {
	if _, ok := c.(identityCodec); ok {
		return p
	}
	return &encodingPublisher{Publisher: p, codec: c}
}

func (p *encodingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	encoded, err := p.codec.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", subject, err)
	}
	return p.Publisher.Publish(ctx, subject, encoded)
}
