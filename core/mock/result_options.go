package mock

import (
	"time"
)

type resultStreamConfig struct {
	nextSleep time.Duration
	nextErr   error
}

type ResultStreamOption func(*resultStreamConfig)

func ResultStreamWithNextSleep(s time.Duration) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.nextSleep = s
	}
}

// ResultStreamWithNextError makes every Next call fail with err.
func ResultStreamWithNextError(err error) ResultStreamOption {
	return func(c *resultStreamConfig) {
		c.nextErr = err
	}
}
