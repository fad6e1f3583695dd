package agw

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// Client is one connected AGW application (an APRS client, a logger,
// a mapping program) speaking the AGWPE socket protocol.
type Client struct {
	conn         net.Conn
	mu           sync.Mutex
	log          *slog.Logger
	monitorAll   bool
	registeredOn map[byte]bool
}

// NewClient wraps an already-accepted TCP connection.
func NewClient(conn net.Conn, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{conn: conn, log: log, registeredOn: make(map[byte]bool)}
}

// Send writes a frame to the client.
func (c *Client) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteFrame(c.conn, f)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Monitoring reports whether this client asked for raw monitoring
// ('k') and should receive a copy of every frame crossing the radio
// ports, not just ones addressed to it.
func (c *Client) Monitoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitorAll
}

// Run reads frames from the client until it disconnects or ctx is
// canceled, dispatching recognized data kinds to onFrame and logging
// (without closing the connection) anything else — spec.md's AGWPE
// entry: "Unknown kinds are logged and ignored."
func (c *Client) Run(ctx context.Context, onFrame func(*Client, Frame)) error {
	errCh := make(chan error, 1)
	frameCh := make(chan Frame, 32)

	go func() {
		defer close(frameCh)
		for {
			f, err := ReadFrame(c.conn)
			if err != nil {
				errCh <- err
				return
			}
			frameCh <- f
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frameCh:
			if !ok {
				return <-errCh
			}
			c.handle(f, onFrame)
		}
	}
}

func (c *Client) handle(f Frame, onFrame func(*Client, Frame)) {
	switch f.Kind {
	case KindRegister, KindRegisterLower:
		c.mu.Lock()
		c.registeredOn[f.Port] = true
		c.mu.Unlock()
	case KindEnableMonitor:
		c.mu.Lock()
		c.monitorAll = true
		c.mu.Unlock()
	case KindRawFrame, KindUIFrame:
		onFrame(c, f)
	default:
		c.log.Debug("agw: unhandled frame kind", "kind", string(rune(f.Kind)))
	}
}

// Listener accepts TCP connections on the AGWPE port (default 8000)
// and runs a Client goroutine per connection, mirroring the KISS
// listener's accept-loop-plus-per-connection-goroutine shape.
type Listener struct {
	ln  net.Listener
	log *slog.Logger
}

// DefaultAddr is the conventional AGWPE listen address.
const DefaultAddr = ":8000"

// ListenTCP starts an AGWPE listener on addr.
func ListenTCP(addr string, log *slog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Listener{ln: ln, log: log}, nil
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
// each new Client.
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
		go onConnect(NewClient(conn, l.log))
	}
}
