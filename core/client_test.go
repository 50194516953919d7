package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/kndndrj/priam/core"
	"github.com/kndndrj/priam/core/mock"
)

const (
	selectByKey = "SELECT v FROM t WHERE k = ?"
	slowQuery   = "SELECT * FROM slow"
)

// wait blocks until the call delivered its callback.
func wait(t *testing.T, call *core.Call) {
	t.Helper()

	select {
	case <-call.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("call did not finish in expected time")
	}
}

func newClient(t *testing.T, adapter *mock.Adapter, opts ...core.ClientOption) *core.Client {
	t.Helper()

	client, err := core.NewClient(adapter, opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

// metricValue returns the sum of all series of a counter or gauge.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return sum
}

func TestNewClient_ConnectError(t *testing.T) {
	r := require.New(t)

	_, err := core.NewClient(mock.NewAdapter(mock.AdapterWithConnectError(errors.New("no hosts available"))))
	r.ErrorContains(err, "no hosts available")
}

func TestClient_CreatePrepared(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey, mock.Column("k", mock.Native(gocql.TypeInt))),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	r.Equal("by_key", prepared.GetName())
	r.Equal(selectByKey, prepared.GetQuery())
	r.Equal(1, prepared.GetParamCount())
	r.Equal(core.DataTypeInt, prepared.GetParams()[0].DataType())

	_, err = client.CreatePrepared("broken", "SELEC nothing")
	r.ErrorContains(err, "syntax error")
}

func TestClient_CreatePrepared_DriverError(t *testing.T) {
	r := require.New(t)

	unavailable := errors.New("cannot achieve consistency level ONE")
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey),
		mock.AdapterWithPrepareError(selectByKey, unavailable),
	)
	reg := prometheus.NewRegistry()
	client := newClient(t, adapter, core.WithRegisterer(reg))

	_, err := client.CreatePrepared("by_key", selectByKey)
	r.ErrorIs(err, unavailable)
	r.ErrorContains(err, "by_key")
	r.Equal(float64(1), metricValue(t, reg, "priam_prepares_total"))
}

func TestClient_CreatePrepared_Timeout(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey),
		mock.AdapterWithPrepareDelay(selectByKey, 5*time.Second),
	)
	client := newClient(t, adapter, core.WithPrepareTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := client.CreatePrepared("by_key", selectByKey)
	r.ErrorIs(err, context.DeadlineExceeded)
	r.Less(time.Since(start), 2*time.Second)

	// a caller context overrides the configured timeout
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.CreatePreparedContext(ctx, "by_key", selectByKey)
	r.ErrorIs(err, context.Canceled)
}

func TestClient_Execute(t *testing.T) {
	r := require.New(t)

	header := core.Header{
		mock.Column("k", mock.Native(gocql.TypeInt)),
		mock.Column("v", mock.Native(gocql.TypeVarchar)),
	}
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey, mock.Column("k", mock.Native(gocql.TypeInt))),
		mock.AdapterWithRows(selectByKey, header,
			mock.NewRow(header, int32(42), "answer"),
			mock.NewRow(header, int32(43), nil),
		),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	stmt := prepared.CreateStatement()
	r.True(stmt.BindInt32(42, 0))

	var (
		status  core.StatusCode
		columns []string
		rows    [][]any
		vErr    error
	)
	call := client.ExecuteStatement(stmt, func(result *core.Result) {
		status = result.GetStatusCode()
		columns = result.GetColumns().Names()
		vErr = result.ForEachRow(func(row core.Row) {
			values, err := row.Values()
			if err != nil {
				vErr = err
				return
			}
			rows = append(rows, values)
		})
	}, time.Second)
	wait(t, call)

	r.NoError(vErr)
	r.Equal(core.StatusOK, status)
	r.Equal([]string{"k", "v"}, columns)
	r.Equal([][]any{{int32(42), "answer"}, {int32(43), nil}}, rows)

	r.Equal(core.CallStateSucceeded, call.GetState())
	r.Equal("by_key", call.GetPrepared())
	r.NoError(call.Err())

	executed := adapter.Session().Executed()
	r.Len(executed, 1)
	r.True(executed[0][0].IsSet)
}

func TestClient_ExecuteError(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey),
		mock.AdapterWithQuerySideEffect(selectByKey, func(context.Context) error {
			return errors.New("unavailable")
		}),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	var (
		calls   atomic.Int32
		status  core.StatusCode
		message string
		rowsErr error
	)
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		calls.Inc()
		status = result.GetStatusCode()
		message = result.GetStatusMessage()
		rowsErr = result.ForEachRow(func(core.Row) {})
	}, time.Second)
	wait(t, call)

	r.Equal(int32(1), calls.Load())
	r.Equal(core.StatusError, status)
	r.Contains(message, "unavailable")
	r.NoError(rowsErr)
	r.Equal(core.CallStateFailed, call.GetState())
	r.ErrorContains(call.Err(), "unavailable")
}

func TestClient_StreamError(t *testing.T) {
	r := require.New(t)

	header := core.Header{mock.Column("v", mock.Native(gocql.TypeInt))}
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey),
		mock.AdapterWithRows(selectByKey, header, mock.NewRow(header, int32(1))),
		mock.AdapterWithResultStreamOpts(mock.ResultStreamWithNextError(errors.New("connection reset"))),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	var status core.StatusCode
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		status = result.GetStatusCode()
	}, time.Second)
	wait(t, call)

	r.Equal(core.StatusError, status)
	r.ErrorContains(call.Err(), "connection reset")
}

func TestClient_Timeout(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(slowQuery),
		mock.AdapterWithQuerySideEffect(slowQuery, func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Second):
			}
			return nil
		}),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("slow", slowQuery)
	r.NoError(err)
	defer prepared.Release()

	var (
		calls  atomic.Int32
		status core.StatusCode
	)
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		calls.Inc()
		status = result.GetStatusCode()
	}, 50*time.Millisecond)
	wait(t, call)

	r.Equal(core.StatusTimeout, status)
	r.Equal(core.CallStateTimedOut, call.GetState())
	r.ErrorIs(call.Err(), core.ErrTimeout)

	// the worker observes the deadline too, but the callback stays single
	time.Sleep(100 * time.Millisecond)
	r.Equal(int32(1), calls.Load())
}

func TestClient_LateCompletionDiscarded(t *testing.T) {
	r := require.New(t)

	reg := prometheus.NewRegistry()
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(slowQuery),
		// ignores the context like an unreachable host would
		mock.AdapterWithQuerySideEffect(slowQuery, func(context.Context) error {
			time.Sleep(200 * time.Millisecond)
			return nil
		}),
	)
	client := newClient(t, adapter, core.WithRegisterer(reg))

	prepared, err := client.CreatePrepared("slow", slowQuery)
	r.NoError(err)
	defer prepared.Release()

	var (
		calls  atomic.Int32
		status core.StatusCode
	)
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		calls.Inc()
		status = result.GetStatusCode()
	}, 20*time.Millisecond)
	wait(t, call)

	r.Equal(core.StatusTimeout, status)

	r.Eventually(func() bool {
		return metricValue(t, reg, "priam_late_completions_discarded_total") == 1
	}, 5*time.Second, 10*time.Millisecond)
	r.Equal(int32(1), calls.Load())
	r.Equal(core.CallStateTimedOut, call.GetState())
	r.Equal(float64(1), metricValue(t, reg, "priam_executions_total"))
	r.Equal(float64(0), metricValue(t, reg, "priam_executions_in_flight"))
}

func TestClient_StatementSubmittedOnce(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey, mock.Column("k", mock.Native(gocql.TypeInt))),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	stmt := prepared.CreateStatement()
	r.True(stmt.BindInt32(1, 0))

	var first, second core.StatusCode
	var secondErr error

	call := client.ExecuteStatement(stmt, func(result *core.Result) {
		first = result.GetStatusCode()
	}, time.Second)
	wait(t, call)

	// binds after submission are rejected
	r.True(stmt.IsSubmitted())
	r.False(stmt.BindInt32(2, 0))

	call = client.ExecuteStatement(stmt, func(result *core.Result) {
		second = result.GetStatusCode()
		secondErr = result.Err()
	}, time.Second)
	wait(t, call)

	r.Equal(core.StatusOK, first)
	r.Equal(core.StatusError, second)
	r.ErrorIs(secondErr, core.ErrStatementSubmitted)

	// the session saw a single execution
	r.Len(adapter.Session().Executed(), 1)
}

func TestClient_ConcurrentStatements(t *testing.T) {
	r := require.New(t)

	const n = 50

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey, mock.Column("k", mock.Native(gocql.TypeInt))),
		mock.AdapterWithEcho(selectByKey),
		mock.AdapterWithResultStreamOpts(mock.ResultStreamWithNextSleep(time.Millisecond)),
	)
	client := newClient(t, adapter, core.WithMaxInFlight(8))

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)

	var (
		mu   sync.Mutex
		seen = make(map[int32]int)
	)
	calls := make([]*core.Call, 0, n)
	for i := 0; i < n; i++ {
		stmt := prepared.CreateStatement()
		r.True(stmt.BindInt32(int32(i), 0))

		calls = append(calls, client.ExecuteStatement(stmt, func(result *core.Result) {
			_ = result.ForEachRow(func(row core.Row) {
				v, err := row.GetColumn(0)
				if err != nil {
					return
				}
				k, err := v.GetInt()
				if err != nil {
					return
				}
				mu.Lock()
				seen[k]++
				mu.Unlock()
			})
		}, 5*time.Second))
	}
	prepared.Release()

	for _, call := range calls {
		wait(t, call)
	}

	r.Len(seen, n)
	for k, count := range seen {
		r.Equal(1, count, "key %d", k)
	}

	// the last statement gives back the last reference
	r.Equal(1, adapter.Session().Released(selectByKey))
}

func TestClient_ResultReleasedAfterCallback(t *testing.T) {
	r := require.New(t)

	header := core.Header{mock.Column("v", mock.Native(gocql.TypeInt))}
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey),
		mock.AdapterWithRows(selectByKey, header, mock.NewRow(header, int32(7))),
	)
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	var (
		kept     *core.Result
		keptRow  core.Row
		keptVal  core.Value
		inside   int32
		insideEr error
	)
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		kept = result
		_ = result.ForEachRow(func(row core.Row) {
			keptRow = row
			keptVal, insideEr = row.GetColumn(0)
			if insideEr == nil {
				inside, insideEr = keptVal.GetInt()
			}
		})
	}, time.Second)
	wait(t, call)

	r.NoError(insideEr)
	r.Equal(int32(7), inside)

	_, err = keptVal.GetInt()
	r.ErrorIs(err, core.ErrResultReleased)
	_, err = keptVal.GetRaw()
	r.ErrorIs(err, core.ErrResultReleased)
	_, err = keptRow.GetColumn(0)
	r.ErrorIs(err, core.ErrResultReleased)
	r.ErrorIs(kept.ForEachRow(func(core.Row) {}), core.ErrResultReleased)

	// counts stay readable
	r.Equal(1, kept.GetRowCount())
	r.Equal(1, kept.GetColumnCount())
}

func TestClient_Close(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(slowQuery),
		mock.AdapterWithQuerySideEffect(slowQuery, func(context.Context) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		}),
	)
	client, err := core.NewClient(adapter)
	r.NoError(err)

	prepared, err := client.CreatePrepared("slow", slowQuery)
	r.NoError(err)

	var delivered atomic.Bool
	inFlight := client.ExecuteStatement(prepared.CreateStatement(), func(*core.Result) {
		delivered.Store(true)
	}, time.Second)

	// waits for the in-flight execution
	client.Close()
	r.True(delivered.Load())
	r.Equal(core.CallStateSucceeded, inFlight.GetState())
	r.True(adapter.Session().IsClosed())

	var afterErr error
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		afterErr = result.Err()
	}, time.Second)
	// delivered before ExecuteStatement returned
	r.ErrorIs(afterErr, core.ErrClientClosed)
	r.Equal(core.CallStateFailed, call.GetState())
	wait(t, call)

	_, err = client.CreatePrepared("again", slowQuery)
	r.ErrorIs(err, core.ErrClientClosed)

	// closing twice is fine
	client.Close()
	prepared.Release()
}

func TestClient_CloseWaitsForLateCompletion(t *testing.T) {
	r := require.New(t)

	reg := prometheus.NewRegistry()
	var finished atomic.Bool
	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(slowQuery),
		// ignores the context like an unreachable host would
		mock.AdapterWithQuerySideEffect(slowQuery, func(context.Context) error {
			time.Sleep(300 * time.Millisecond)
			finished.Store(true)
			return nil
		}),
	)
	client, err := core.NewClient(adapter, core.WithRegisterer(reg))
	r.NoError(err)
	session := adapter.Session()

	prepared, err := client.CreatePrepared("slow", slowQuery)
	r.NoError(err)

	var status core.StatusCode
	call := client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		status = result.GetStatusCode()
	}, 10*time.Millisecond)
	wait(t, call)
	r.Equal(core.StatusTimeout, status)

	prepared.Release()
	r.Equal(0, session.Released(slowQuery))

	client.Close()

	// the worker gave its reference back before the session was closed
	r.True(finished.Load())
	r.Equal(1, session.Released(slowQuery))
	r.True(session.IsClosed())
	r.Equal(float64(1), metricValue(t, reg, "priam_late_completions_discarded_total"))
	r.Equal(float64(0), metricValue(t, reg, "priam_executions_in_flight"))
}

func TestClient_CloseWaitsForRejection(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(mock.AdapterWithPrepared(selectByKey))
	client, err := core.NewClient(adapter)
	r.NoError(err)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	stmt := prepared.CreateStatement()
	wait(t, client.ExecuteStatement(stmt, nil, time.Second))

	var delivered atomic.Bool
	client.ExecuteStatement(stmt, func(result *core.Result) {
		time.Sleep(50 * time.Millisecond)
		delivered.Store(result.GetStatusCode() == core.StatusError)
	}, time.Second)

	client.Close()
	r.True(delivered.Load())
}

func TestPrepared_Release(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.AdapterWithPrepared(selectByKey, mock.Column("k", mock.Native(gocql.TypeInt))),
	)
	client := newClient(t, adapter)
	session := adapter.Session()

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)

	pending := prepared.CreateStatement()
	discarded := prepared.CreateStatement()

	prepared.Release()
	prepared.Release()
	r.Equal(0, session.Released(selectByKey))

	discarded.Discard()
	r.Equal(0, session.Released(selectByKey))
	r.False(discarded.BindInt32(1, 0))

	call := client.ExecuteStatement(pending, nil, time.Second)
	wait(t, call)
	r.Equal(core.CallStateSucceeded, call.GetState())
	r.Equal(1, session.Released(selectByKey))

	// fully released
	var lateErr error
	call = client.ExecuteStatement(prepared.CreateStatement(), func(result *core.Result) {
		lateErr = result.Err()
	}, time.Second)
	wait(t, call)
	r.ErrorIs(lateErr, core.ErrPreparedReleased)
	r.Equal(1, session.Released(selectByKey))
}

func TestCall_MarshalJSON(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(mock.AdapterWithPrepared(selectByKey))
	client := newClient(t, adapter)

	prepared, err := client.CreatePrepared("by_key", selectByKey)
	r.NoError(err)
	defer prepared.Release()

	call := client.ExecuteStatement(prepared.CreateStatement(), nil, time.Second)
	wait(t, call)

	data, err := call.MarshalJSON()
	r.NoError(err)
	r.Contains(string(data), fmt.Sprintf(`"id":"%s"`, call.GetID()))
	r.Contains(string(data), `"prepared":"by_key"`)
	r.Contains(string(data), `"state":"succeeded"`)
	r.NotContains(string(data), `"error"`)
}

func TestCallState_String(t *testing.T) {
	for _, state := range []core.CallState{
		core.CallStateUnknown,
		core.CallStateExecuting,
		core.CallStateSucceeded,
		core.CallStateFailed,
		core.CallStateTimedOut,
	} {
		require.Equal(t, state, core.CallStateFromString(state.String()))
	}

	require.Equal(t, core.CallStateUnknown, core.CallStateFromString("archived"))
	require.True(t, core.CallStateTimedOut.IsFinal())
	require.False(t, core.CallStateExecuting.IsFinal())
}
