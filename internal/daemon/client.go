package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultSocketPath is where leafcamd listens unless configured otherwise.
const DefaultSocketPath = "/run/leafcam/leafcamd.sock"

// maxLine bounds one NDJSON line. Preview frames arrive base64-encoded.
const maxLine = 16 * 1024 * 1024

// ErrRemote reports a command the sidecar rejected with ok=false.
var ErrRemote = errors.New("sidecar error")

// Client communicates with leafcamd over a Unix socket. Commands on one
// client are serialized.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// Connect dials the sidecar Unix socket.
func Connect(socketPath string) (*Client, error) {
	return ConnectContext(context.Background(), socketPath)
}

// ConnectContext dials the sidecar Unix socket, honoring ctx while dialing.
func ConnectContext(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to sidecar: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), maxLine)

	return &Client{conn: conn, scanner: scanner}, nil
}

// ConnectPair dials two independent connections: one for preview frames and
// one for the trial controller, so preview polling never waits behind a
// capture or an inference call.
func ConnectPair(ctx context.Context, socketPath string) (preview, control *Client, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := ConnectContext(gctx, socketPath)
		preview = c
		return err
	})
	g.Go(func() error {
		c, err := ConnectContext(gctx, socketPath)
		control = c
		return err
	})
	if err := g.Wait(); err != nil {
		if preview != nil {
			preview.Close()
		}
		if control != nil {
			control.Close()
		}
		return nil, nil, err
	}
	return preview, control, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends a command and reads one response line.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	return c.Do(context.Background(), cmd)
}

// Do sends a command and reads one response line. Cancelling ctx aborts the
// exchange; the connection is unusable afterwards.
func (c *Client) Do(ctx context.Context, cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, ioError(ctx, "write command", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Response{}, ioError(ctx, "read response", err)
		}
		return Response{}, fmt.Errorf("connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "unspecified failure"
		}
		return resp, fmt.Errorf("%s: %w: %s", cmd.Cmd, ErrRemote, msg)
	}

	return resp, nil
}

func ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Status queries the sidecar's camera and model description.
func (c *Client) Status(ctx context.Context) (Response, error) {
	return c.Do(ctx, Command{Cmd: CmdStatus})
}
