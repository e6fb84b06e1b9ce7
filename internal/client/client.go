package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"ovdlink/internal/protocol"
)

const DefaultAddr = "127.0.0.1:21213"

var (
	// ErrUnexpectedMessage is returned when the server sends anything but a frame.
	ErrUnexpectedMessage = errors.New("unexpected message from server")

	// ErrStreamBroken is returned by ReadFrame once an earlier read stopped
	// inside a frame. The connection must be closed and dialed again.
	ErrStreamBroken = errors.New("frame stream broken by an interrupted read")
)

// Client is the tracking source side of the link. Sends are safe for
// concurrent use; ReadFrame must be called from one goroutine.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	readErr error // sticky, set when a read stopped mid-frame

	writeMu sync.Mutex
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 256*1024),
	}
}

// Send writes one message as a single frame.
func (c *Client) Send(msg protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}
	return nil
}

func (c *Client) SendPosition(p protocol.Position) error {
	return c.Send(p)
}

func (c *Client) SendControllerInput(in protocol.ControllerInput) error {
	return c.Send(in)
}

func (c *Client) SendBodyPose(b protocol.BodyPose) error {
	return c.Send(b)
}

// ReadFrame blocks until the next eye frame arrives or ctx is done. If ctx
// ends after part of a frame was read, the client is left unusable and every
// later call returns ErrStreamBroken.
func (c *Client) ReadFrame(ctx context.Context) (protocol.Frame, error) {
	if c.readErr != nil {
		return protocol.Frame{}, c.readErr
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		// unblock the pending read
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	cr := &countingReader{r: c.reader}
	msg, err := protocol.ReadMessage(cr)
	if err != nil {
		if cr.n > 0 {
			c.readErr = fmt.Errorf("%w after %d bytes: %v", ErrStreamBroken, cr.n, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return protocol.Frame{}, ctxErr
		}
		// the read deadline can fire just before the ctx timer does
		var netErr net.Error
		if deadline, ok := ctx.Deadline(); ok && errors.As(err, &netErr) && netErr.Timeout() && !time.Now().Before(deadline) {
			return protocol.Frame{}, context.DeadlineExceeded
		}
		return protocol.Frame{}, err
	}
	f, ok := msg.(protocol.Frame)
	if !ok {
		return protocol.Frame{}, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Kind())
	}
	return f, nil
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
