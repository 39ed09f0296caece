// Package agent implements C3: one Agent's TCP connection, its
// connect/reconnect state machine, and the single-flight request queue that
// substitutes for the wire protocol's missing correlation IDs.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
	"github.com/lumenbus/lcs-gateway/internal/lcs/response"
	"github.com/lumenbus/lcs-gateway/internal/metrics"
)

// ConnState is the Agent client's connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	dialTimeout   = 5 * time.Second
	queueCapacity = 32
)

type pendingRequest struct {
	frame    []byte
	resultCh chan sendResult
}

type sendResult struct {
	typed *response.Typed
	err   error
}

// Client owns one TCP connection to a backend Agent.
type Client struct {
	id   string
	Name string
	Host string
	Port int

	requestTimeout time.Duration
	backoff        Backoff
	limiter        *rate.Limiter
	logger         *zap.Logger
	metrics        *metrics.AppMetrics
	onStateChange  func(id string, state ConnState)

	mu    sync.RWMutex
	state ConnState
	conn  net.Conn
	queue chan *pendingRequest

	cancel context.CancelFunc
	done   chan struct{}
}

// Config bundles the tunables New needs beyond identity/address.
type Config struct {
	RequestTimeout time.Duration
	Backoff        Backoff
	RateLimit      float64
	RateBurst      int
	Logger         *zap.Logger
	Metrics        *metrics.AppMetrics
	OnStateChange  func(id string, state ConnState)
}

// New constructs a Client. It does not connect until Connect is called.
func New(id, name, host string, port int, cfg Config) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = &FixedBackoff{Delay: 5 * time.Second}
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		id:             id,
		Name:           name,
		Host:           host,
		Port:           port,
		requestTimeout: cfg.RequestTimeout,
		backoff:        cfg.Backoff,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:         cfg.Logger.With(zap.String("agent_id", id)),
		metrics:        cfg.Metrics,
		onStateChange:  cfg.OnStateChange,
		state:          StateDisconnected,
	}
}

// ID returns the identifier this client was registered under.
func (c *Client) ID() string { return c.id }

func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connected reports whether the client is presently able to accept Send calls.
func (c *Client) Connected() bool { return c.State() == StateConnected }

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.AgentState.WithLabelValues(c.id).Set(float64(s))
	}
	if c.onStateChange != nil {
		c.onStateChange(c.id, s)
	}
}

// Connect starts the connect/reconnect loop in the background. Calling it
// twice on an already-running client is a no-op.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx, c.done)
}

// Disconnect stops the connect/reconnect loop, closes the socket and fails
// every pending request with Cancelled. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.setState(StateDisconnected)
}

// Send is the single wire primitive every command builder funnels through.
func (c *Client) Send(frameBytes []byte) (*response.Typed, error) {
	c.mu.RLock()
	state := c.state
	queue := c.queue
	opcode := opcodeOf(frameBytes)
	c.mu.RUnlock()

	if state != StateConnected || queue == nil {
		c.observeResult(opcode, "not_connected", 0)
		return nil, ErrNotConnected
	}

	req := &pendingRequest{frame: frameBytes, resultCh: make(chan sendResult, 1)}
	start := time.Now()
	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	select {
	case queue <- req:
	case <-timer.C:
		c.observeResult(opcode, "timeout", time.Since(start))
		return nil, ErrTimeout
	}

	select {
	case res := <-req.resultCh:
		result := "ok"
		switch res.err {
		case nil:
		case ErrTimeout:
			result = "timeout"
		case ErrConnectionLost:
			result = "connection_lost"
		case ErrCancelled:
			result = "cancelled"
		default:
			result = "error"
		}
		c.observeResult(opcode, result, time.Since(start))
		return res.typed, res.err
	case <-timer.C:
		c.observeResult(opcode, "timeout", time.Since(start))
		return nil, ErrTimeout
	}
}

func opcodeOf(f []byte) string {
	if len(f) < 15 {
		return "?"
	}
	return fmt.Sprintf("%02X%02X", f[13], f[14])
}

func (c *Client) observeResult(opcode, result string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(c.id, opcode, result).Inc()
	if d > 0 {
		c.metrics.RequestDuration.WithLabelValues(c.id).Observe(d.Seconds())
	}
}

// run is the outer connect/reconnect loop, grounded on a scan-connect-serve
// retry cycle: dial, serve requests until the socket drops, back off, retry.
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.setState(StateConnecting)
		addr := net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			attempt++
			c.logger.Warn("connect failed", zap.Error(err), zap.Int("attempt", attempt))
			c.setState(StateReconnecting)
			if !c.sleepOrDone(ctx, c.backoff.Next(attempt)) {
				return
			}
			continue
		}

		attempt = 0
		c.backoff.Reset()
		queue := make(chan *pendingRequest, queueCapacity)
		c.mu.Lock()
		c.conn = conn
		c.queue = queue
		c.mu.Unlock()
		c.setState(StateConnected)
		c.logger.Info("connected", zap.String("host", c.Host), zap.Int("port", c.Port))

		c.serve(ctx, conn, queue)

		c.mu.Lock()
		c.conn = nil
		c.queue = nil
		c.mu.Unlock()
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
		c.setState(StateReconnecting)
		if !c.sleepOrDone(ctx, c.backoff.Next(1)) {
			return
		}
	}
}

func (c *Client) sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// serve dispatches queued requests one at a time over conn until the
// connection drops or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn net.Conn, queue chan *pendingRequest) {
	responseCh := make(chan *response.Typed, 1)
	errCh := make(chan error, 1)
	readDone := make(chan struct{})
	go c.readLoop(conn, responseCh, errCh, readDone)
	defer func() {
		_ = conn.Close()
		<-readDone
	}()

	for {
		select {
		case <-ctx.Done():
			c.failAll(queue, ErrCancelled)
			return
		case err := <-errCh:
			c.logger.Warn("connection lost while idle", zap.Error(err))
			c.failAll(queue, ErrConnectionLost)
			return
		case req := <-queue:
			if err := c.limiter.Wait(ctx); err != nil {
				req.resultCh <- sendResult{err: ErrCancelled}
				c.failAll(queue, ErrCancelled)
				return
			}
			// A frame that arrived while no request was in flight has no
			// owner; drop it so it is not taken as this request's reply.
			select {
			case stale := <-responseCh:
				c.logger.Warn("dropping spurious frame: no pending request", zap.Uint16("opcode", stale.Opcode))
			default:
			}
			if _, err := conn.Write(req.frame); err != nil {
				req.resultCh <- sendResult{err: ErrConnectionLost}
				c.logger.Warn("write failed", zap.Error(err))
				c.failAll(queue, ErrConnectionLost)
				return
			}

			timer := time.NewTimer(c.requestTimeout)
			select {
			case typed := <-responseCh:
				timer.Stop()
				req.resultCh <- sendResult{typed: typed}
			case err := <-errCh:
				timer.Stop()
				req.resultCh <- sendResult{err: ErrConnectionLost}
				c.logger.Warn("connection lost awaiting response", zap.Error(err))
				c.failAll(queue, ErrConnectionLost)
				return
			case <-timer.C:
				req.resultCh <- sendResult{err: ErrTimeout}
				// The bus is strictly single-flight: once a reply is late
				// there is no wire-level id to tell it apart from the next
				// request's reply. Rather than risk handing request i+1 the
				// stale answer to request i, treat the connection as
				// desynchronized and tear it down; the reconnect loop opens
				// a fresh one with its own responseCh, so any reply that
				// eventually arrives on this conn has nothing left to
				// misdeliver into.
				c.logger.Warn("request timed out, closing connection to resynchronize", zap.Duration("timeout", c.requestTimeout))
				c.failAll(queue, ErrTimeout)
				return
			case <-ctx.Done():
				timer.Stop()
				req.resultCh <- sendResult{err: ErrCancelled}
				c.failAll(queue, ErrCancelled)
				return
			}
		}
	}
}

// failAll drains every request still queued (not yet on the wire) and
// resolves each with err, in FIFO order.
func (c *Client) failAll(queue chan *pendingRequest, err error) {
	for {
		select {
		case req := <-queue:
			req.resultCh <- sendResult{err: err}
		default:
			return
		}
	}
}

// readLoop reassembles the TCP byte stream into frames and hands each
// interpreted response to whichever send() is currently awaiting one.
func (c *Client) readLoop(conn net.Conn, responseCh chan<- *response.Typed, errCh chan<- error, done chan struct{}) {
	defer close(done)
	var buf bytes.Buffer
	tmp := make([]byte, 4096)

	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
			c.drainFrames(&buf, responseCh)
		}
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
	}
}

func (c *Client) drainFrames(buf *bytes.Buffer, responseCh chan<- *response.Typed) {
	for {
		b := buf.Bytes()
		res := frame.TryDecode(b)
		if !res.Complete {
			return
		}
		if res.Corrupt {
			if c.metrics != nil {
				c.metrics.FramesDecodedTotal.WithLabelValues("corrupt").Inc()
			}
			buf.Next(res.Consumed)
			continue
		}

		if c.metrics != nil {
			c.metrics.FramesDecodedTotal.WithLabelValues("ok").Inc()
		}
		typed := response.Interpret(res.Frame, time.Now())
		buf.Next(res.Consumed)

		select {
		case responseCh <- typed:
		default:
			c.logger.Warn("dropping spurious frame: no pending request", zap.Uint16("opcode", typed.Opcode))
		}
	}
}
