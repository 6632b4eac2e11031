package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/canopy-network/plugin-playground/internal/domain"
)

func TestFrame_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		frames := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 512), 1, 8).Draw(rt, "frames")

		var buf bytes.Buffer
		for _, f := range frames {
			if err := WriteFrame(&buf, f, 1024); err != nil {
				rt.Fatalf("WriteFrame() error = %v", err)
			}
		}
		for i, want := range frames {
			got, err := ReadFrame(&buf, 1024)
			if err != nil {
				rt.Fatalf("ReadFrame(%d) error = %v", i, err)
			}
			if !bytes.Equal(got, want) {
				rt.Fatalf("frame %d = %x, want %x", i, got, want)
			}
		}
		if _, err := ReadFrame(&buf, 1024); !errors.Is(err, io.EOF) {
			rt.Fatalf("ReadFrame() at end = %v, want io.EOF", err)
		}
	})
}

func TestWriteFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, 65), 64)

	assert.ErrorIs(t, err, domain.ErrFrameTooLarge)
	assert.Zero(t, buf.Len(), "nothing should be written for an oversize frame")
}

func TestReadFrame_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100), 1000))

	_, err := ReadFrame(&buf, 99)
	assert.ErrorIs(t, err, domain.ErrFrameTooLarge)
}

func TestReadFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello world"), 1000))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])

	_, err := ReadFrame(truncated, 1000)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestConn_SendReceive(t *testing.T) {
	a, b := net.Pipe()
	left, right := NewConn(a, 1024), NewConn(b, 1024)
	defer left.Close()
	defer right.Close()

	go func() {
		_ = left.Send([]byte(`{"id":1}`))
	}()

	got, err := right.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(got))
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := NewConn(a, 1024)

	first := c.Close()
	second := c.Close()

	assert.NoError(t, first)
	assert.Equal(t, first, second)

	_, err := c.Receive()
	assert.Error(t, err)
}
