package adapters

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// observer records the latency of every query attempt the driver makes.
type observer struct {
	requestDuration *prometheus.HistogramVec
}

// newObserver reuses the histogram if reg already has it, as a cluster may
// open more than one session.
func newObserver(reg prometheus.Registerer) (*observer, error) {
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "priam",
		Name:      "cassandra_request_duration_seconds",
		Help:      "Time spent doing Cassandra requests.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
	}, []string{"keyspace", "status_code"})

	if reg == nil {
		return &observer{requestDuration: requestDuration}, nil
	}

	err := reg.Register(requestDuration)
	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
	case errors.As(err, &are):
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, errors.Errorf("collector %T already registered as cassandra request duration", are.ExistingCollector)
		}
		requestDuration = existing
	default:
		return nil, errors.Wrap(err, "register cassandra request duration")
	}

	return &observer{requestDuration: requestDuration}, nil
}

func (o *observer) ObserveQuery(_ context.Context, q gocql.ObservedQuery) {
	statusCode := "success"
	if q.Err != nil {
		statusCode = "failure"
	}

	o.requestDuration.WithLabelValues(q.Keyspace, statusCode).Observe(q.End.Sub(q.Start).Seconds())
}
