package kiss

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/doismellburning/samoyed/internal/metrics"
)

// Client is one connected KISS endpoint (a TCP socket, a serial port,
// or a pty), decoding inbound bytes into Frames and accepting encoded
// frames for writing back.
type Client struct {
	conn    io.ReadWriteCloser
	dec     *Decoder
	mu      sync.Mutex
	log     *slog.Logger
	metrics *metrics.Metrics
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithMetrics attaches the Prometheus collectors the Client's Decoder
// reports protocol errors against.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient wraps conn (already-open TCP/serial/pty connection).
func NewClient(conn io.ReadWriteCloser, log *slog.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{conn: conn, log: log}
	for _, opt := range opts {
		opt(c)
	}
	c.dec = NewDecoder(WithDecoderLogger(log), WithProtocolErrorHook(func() {
		if c.metrics != nil {
			c.metrics.KISSProtocolErrorsTotal.Inc()
		}
	}))
	return c
}

// Send writes an encoded frame to the client.
func (c *Client) Send(chanNum int, cmd Command, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(Encode(chanNum, cmd, payload))
	return err
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run reads from the client until it disconnects or ctx is canceled,
// invoking onFrame for each complete, recognized KISS frame and
// replying in-line to SET_HARDWARE queries (spec.md §4 supplemented
// feature: an echo reply, since this TNC has no vendor-specific
// hardware registers to report).
func (c *Client) Run(ctx context.Context, onFrame func(*Client, Frame)) error {
	r := bufio.NewReader(c.conn)
	errCh := make(chan error, 1)
	byteCh := make(chan byte, 256)

	go func() {
		defer close(byteCh)
		for {
			b, err := r.ReadByte()
			if err != nil {
				errCh <- err
				return
			}
			byteCh <- b
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-byteCh:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return io.EOF
				}
			}
			if frame, complete := c.dec.Feed(b); complete {
				if frame.Command == CmdSetHardware {
					if err := c.Send(frame.Chan, CmdSetHardware, nil); err != nil {
						c.log.Warn("kiss: SET_HARDWARE reply failed", "error", err)
					}
				}
				onFrame(c, frame)
			}
		}
	}
}

// Listener accepts TCP connections and hands each one to its own
// goroutine, so several KISS TCP clients can be live at once, each
// independently — grounded on the teacher's
// accept-loop-plus-per-connection-goroutine server shape. It listens
// on TCP only; serial ports and ptys are not opened by this package.
type Listener struct {
	ln      net.Listener
	log     *slog.Logger
	metrics *metrics.Metrics
}

// ListenerOption configures a Listener at construction.
type ListenerOption func(*Listener)

// WithListenerMetrics attaches the Prometheus collectors every
// accepted Client is built with.
func WithListenerMetrics(m *metrics.Metrics) ListenerOption {
	return func(l *Listener) { l.metrics = m }
}

// ListenTCP starts a TCP KISS listener on addr.
func ListenTCP(addr string, log *slog.Logger, opts ...ListenerOption) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	l := &Listener{ln: ln, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Serve accepts connections until ctx is done, calling onConnect for
// each new Client in a goroutine of its own, so onConnect may block in
// the client's Run (the caller is responsible for calling Run on it
// and registering it with the dispatch hub's fan-out).
func (l *Listener) Serve(ctx context.Context, onConnect func(*Client)) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		client := NewClient(conn, l.log, WithMetrics(l.metrics))
		go onConnect(client)
	}
}
