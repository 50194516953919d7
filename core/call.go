package core

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

type (
	CallID string

	// Call tracks one execution of a statement. Exactly one of the
	// executing worker and the timeout wins the transition out of
	// CallStateExecuting and delivers the callback, the other is discarded.
	Call struct {
		id        CallID
		query     string
		prepared  string
		state     atomic.Int32
		timestamp time.Time

		mu        sync.Mutex
		timeTaken time.Duration
		// any error that might occur during execution
		err error

		done chan struct{}
	}
)

// callPersistent is used for marshaling the call
type callPersistent struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	Prepared  string `json:"prepared"`
	State     string `json:"state"`
	TimeTaken int64  `json:"time_taken_us"`
	Timestamp int64  `json:"timestamp_us"`
	Error     string `json:"error,omitempty"`
}

func (c *Call) toPersistent() *callPersistent {
	c.mu.Lock()
	defer c.mu.Unlock()

	errMsg := ""
	if c.err != nil {
		errMsg = c.err.Error()
	}

	return &callPersistent{
		ID:        string(c.id),
		Query:     c.query,
		Prepared:  c.prepared,
		State:     c.GetState().String(),
		TimeTaken: c.timeTaken.Microseconds(),
		Timestamp: c.timestamp.UnixMicro(),
		Error:     errMsg,
	}
}

func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toPersistent())
}

func newCall(query, prepared string) *Call {
	c := &Call{
		id:        CallID(uuid.New().String()),
		query:     query,
		prepared:  prepared,
		timestamp: time.Now(),

		done: make(chan struct{}),
	}
	c.state.Store(int32(CallStateExecuting))
	return c
}

// finish moves the call to state and, if this caller won the transition,
// invokes callback with result, releases the result once it returns and runs
// after before Done is closed. It returns false if the call was already
// finished.
func (c *Call) finish(state CallState, result *Result, callback func(*Result), after func()) bool {
	if !c.state.CompareAndSwap(int32(CallStateExecuting), int32(state)) {
		return false
	}

	c.mu.Lock()
	c.timeTaken = time.Since(c.timestamp)
	c.err = result.err
	c.mu.Unlock()

	defer close(c.done)
	if after != nil {
		defer after()
	}
	defer result.release()

	if callback != nil {
		callback(result)
	}
	return true
}

func (c *Call) GetID() CallID {
	return c.id
}

func (c *Call) GetQuery() string {
	return c.query
}

// GetPrepared returns the name of the prepared statement that was executed.
func (c *Call) GetPrepared() string {
	return c.prepared
}

func (c *Call) GetState() CallState {
	return CallState(c.state.Load())
}

func (c *Call) GetTimeTaken() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeTaken
}

func (c *Call) GetTimestamp() time.Time {
	return c.timestamp
}

func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done returns a non-buffered channel that is closed after the callback
// returned.
func (c *Call) Done() chan struct{} {
	return c.done
}
