package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/valyala/bytebufferpool"

	"github.com/canopy-network/plugin-playground/internal/domain"
)

const headerLen = 4

// WriteFrame writes payload to w prefixed with its length.
func WriteFrame(w io.Writer, payload []byte, maxBytes int) error {
	if len(payload) > maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", domain.ErrFrameTooLarge, len(payload), maxBytes)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var hdr [headerLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	_, _ = buf.Write(hdr[:])
	_, _ = buf.Write(payload)

	_, err := w.Write(buf.B)
	return err
}

// ReadFrame reads one frame from r.
// A clean end of stream before the header returns io.EOF; a stream cut inside
// a frame returns io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, maxBytes int) ([]byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if uint64(n) > uint64(maxBytes) {
		return nil, fmt.Errorf("%w: %d > %d bytes", domain.ErrFrameTooLarge, n, maxBytes)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// Conn is a framed connection. Send is safe for concurrent use; Receive must
// be called from a single reader goroutine.
type Conn struct {
	conn     net.Conn
	reader   *bufio.Reader
	maxBytes int

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps c with frame encoding limited to maxBytes per frame.
func NewConn(c net.Conn, maxBytes int) *Conn {
	return &Conn{
		conn:     c,
		reader:   bufio.NewReader(c),
		maxBytes: maxBytes,
	}
}

// Send writes one frame.
func (c *Conn) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, payload, c.maxBytes)
}

// Receive blocks until the next frame arrives.
func (c *Conn) Receive() ([]byte, error) {
	return ReadFrame(c.reader, c.maxBytes)
}

// Close closes the underlying connection once; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
