package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/semaphore"
)

// Client owns a session with the cluster. It prepares queries and executes
// statements asynchronously. All methods are safe for concurrent use.
type Client struct {
	session        Session
	logger         log.Logger
	metrics        *metrics
	sem            *semaphore.Weighted
	prepareTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	// inFlight counts executions whose goroutines have not exited yet
	inFlight sync.WaitGroup
}

func NewClient(adapter Adapter, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	session, err := adapter.Connect()
	if err != nil {
		return nil, fmt.Errorf("adapter.Connect: %w", err)
	}

	c := &Client{
		session:        session,
		logger:         log.With(cfg.logger, "component", "client"),
		metrics:        newMetrics(cfg.registerer),
		prepareTimeout: cfg.prepareTimeout,
	}
	if cfg.maxInFlight > 0 {
		c.sem = semaphore.NewWeighted(cfg.maxInFlight)
	}

	return c, nil
}

// CreatePrepared compiles query on the cluster. The call blocks until the
// cluster answered or the prepare timeout elapsed.
func (c *Client) CreatePrepared(name, query string) (*Prepared, error) {
	ctx := context.Background()
	if c.prepareTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.prepareTimeout)
		defer cancel()
	}
	return c.CreatePreparedContext(ctx, name, query)
}

func (c *Client) CreatePreparedContext(ctx context.Context, name, query string) (*Prepared, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}

	info, err := c.session.Prepare(ctx, query)
	if err != nil {
		c.metrics.prepares.WithLabelValues("failure").Inc()
		level.Warn(c.logger).Log("msg", "prepare failed", "prepared", name, "err", err)
		return nil, fmt.Errorf("session.Prepare %q: %w", name, err)
	}
	c.metrics.prepares.WithLabelValues("success").Inc()
	level.Debug(c.logger).Log("msg", "prepared statement", "prepared", name, "params", len(info.Params))

	return newPrepared(c, name, info), nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ExecuteStatement submits stmt for execution and returns immediately.
//
// callback is invoked exactly once on a background goroutine with a result
// whose status is StatusOK, StatusError or StatusTimeout. On a closed client
// it is invoked before ExecuteStatement returns. The result and
// everything read from it are released when callback returns. If the
// execution does not finish within timeout, callback gets StatusTimeout and
// the late completion is discarded.
//
// A statement can be submitted once. Submitting it again delivers a
// StatusError result wrapping ErrStatementSubmitted.
func (c *Client) ExecuteStatement(stmt *Statement, callback func(*Result), timeout time.Duration) *Call {
	p := stmt.prepared
	call := newCall(p.GetQuery(), p.GetName())

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		// nothing may run after Close returned, so the rejection is
		// delivered before returning
		after, err := func() (func(), error) {
			if _, err := stmt.submit(); err != nil {
				return nil, err
			}
			return p.release, ErrClientClosed
		}()
		c.reject(call, callback, err, after)
		return call
	}
	// released when the goroutines of this call are gone
	c.inFlight.Add(1)
	c.mu.RUnlock()

	values, err := stmt.submit()
	if err != nil {
		// the statement holds no reference to give back
		go func() {
			defer c.inFlight.Done()
			c.reject(call, callback, err, nil)
		}()
		return call
	}

	c.metrics.inFlight.Inc()

	// the statement reference is given back by the worker, as the session
	// may still use the handle after a timeout was delivered
	deliver := func(state CallState, result *Result, release func()) bool {
		return call.finish(state, result, callback, func() {
			c.observe(call)
			if release != nil {
				release()
			}
			c.metrics.inFlight.Dec()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		deliver(CallStateTimedOut, newFailedResult(StatusTimeout, fmt.Errorf("%w after %s", ErrTimeout, timeout)), nil)
	})

	go func() {
		defer c.inFlight.Done()

		state, result := c.execute(ctx, p.info, values)
		if !deliver(state, result, p.release) {
			p.release()
			result.release()
			c.metrics.discarded.Inc()
			level.Debug(c.logger).Log("msg", "discarded late completion", "call", call.GetID(), "prepared", call.GetPrepared(), "state", state)
		}

		// wait for a timeout delivery that is still running its callback
		if !stop() {
			<-fired
		}
		cancel()
	}()

	return call
}

func (c *Client) reject(call *Call, callback func(*Result), err error, after func()) {
	call.finish(CallStateFailed, newFailedResult(StatusError, err), callback, func() {
		c.observe(call)
		if after != nil {
			after()
		}
	})
}

func (c *Client) execute(ctx context.Context, info *PreparedInfo, values []BoundValue) (CallState, *Result) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return failure(ctx, err)
		}
		defer c.sem.Release(1)
	}

	stream, err := c.session.Execute(ctx, info, values)
	if err != nil {
		return failure(ctx, err)
	}

	result := newResult()
	if err := result.fill(stream); err != nil {
		return failure(ctx, err)
	}

	return CallStateSucceeded, result
}

// failure classifies an execution error. Errors caused by the deadline are
// reported as timeouts.
func failure(ctx context.Context, err error) (CallState, *Result) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CallStateTimedOut, newFailedResult(StatusTimeout, fmt.Errorf("%w: %w", ErrTimeout, err))
	}
	return CallStateFailed, newFailedResult(StatusError, err)
}

func (c *Client) observe(call *Call) {
	state := call.GetState()
	status := state.status().String()
	took := call.GetTimeTaken()

	c.metrics.executions.WithLabelValues(status).Inc()
	c.metrics.duration.WithLabelValues(status).Observe(took.Seconds())

	if err := call.Err(); err != nil {
		level.Debug(c.logger).Log("msg", "execution finished", "call", call.GetID(), "prepared", call.GetPrepared(), "state", state, "took", took, "err", err)
		return
	}
	level.Debug(c.logger).Log("msg", "execution finished", "call", call.GetID(), "prepared", call.GetPrepared(), "state", state, "took", took)
}

// Close waits for every submitted execution to deliver its callback and for
// late completions of timed out executions, then closes the session.
// Executions submitted afterwards fail with ErrClientClosed, delivered before
// ExecuteStatement returns. Close must not be called from a callback.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.inFlight.Wait()
	c.session.Close()
	level.Debug(c.logger).Log("msg", "client closed")
}
