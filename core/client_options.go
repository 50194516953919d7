package core

import (
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

type clientConfig struct {
	logger         log.Logger
	registerer     prometheus.Registerer
	maxInFlight    int64
	prepareTimeout time.Duration
}

type ClientOption func(*clientConfig)

func WithLogger(logger log.Logger) ClientOption {
	return func(cc *clientConfig) {
		if logger == nil {
			return
		}
		cc.logger = logger
	}
}

// WithRegisterer registers the client metrics with reg. Without it, metrics
// are collected but not exported.
func WithRegisterer(reg prometheus.Registerer) ClientOption {
	return func(cc *clientConfig) {
		cc.registerer = reg
	}
}

// WithMaxInFlight limits the number of statements executing on the session at
// once. Executions over the limit wait for a free slot within their timeout.
func WithMaxInFlight(n int64) ClientOption {
	return func(cc *clientConfig) {
		if n <= 0 {
			return
		}
		cc.maxInFlight = n
	}
}

func WithPrepareTimeout(timeout time.Duration) ClientOption {
	return func(cc *clientConfig) {
		cc.prepareTimeout = timeout
	}
}
