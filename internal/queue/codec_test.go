package queue

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	for _, name := range []string{"", "none", "NONE"} {
		c, err := NewCodec(name)
		require.NoError(t, err)
		assert.Equal(t, "none", c.Name())
	}

	c, err := NewCodec("Snappy")
	require.NoError(t, err)
	assert.Equal(t, "snappy", c.Name())

	_, err = NewCodec("gzip")
	assert.Error(t, err)
}

func TestSnappyCodec_RoundTrip(t *testing.T) {
	c := SnappyCodec{}
	payload := bytes.Repeat([]byte(`{"host":"10.0.0.1","port":7000}`), 50)

	encoded, err := c.Encode(payload)
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(payload))

	decoded, err := c.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)

	empty, err := c.Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSnappyCodec_DecodeGarbage(t *testing.T) {
	_, err := SnappyCodec{}.Decode([]byte{0xff, 0xff, 0xff, 0xff, 0xff})
	assert.ErrorContains(t, err, "snappy decode failed")
}

func TestWithCodec_IdentityIsUnwrapped(t *testing.T) {
	mem := NewMemoryPublisher()
	c, err := NewCodec("none")
	require.NoError(t, err)
	assert.Same(t, mem, WithCodec(mem, c))
}
