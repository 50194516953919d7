package adapters

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gocql/gocql"
)

// driverLogger forwards gocql's internal messages to a go-kit logger.
type driverLogger struct {
	logger log.Logger
}

func (l driverLogger) Print(v ...interface{}) {
	l.log(fmt.Sprint(v...))
}

func (l driverLogger) Printf(format string, v ...interface{}) {
	l.log(fmt.Sprintf(format, v...))
}

func (l driverLogger) Println(v ...interface{}) {
	l.log(fmt.Sprintln(v...))
}

func (l driverLogger) log(msg string) {
	level.Debug(l.logger).Log("msg", strings.TrimSpace(msg))
}

// SetDriverLogger routes the process-wide gocql logger to logger.
func SetDriverLogger(logger log.Logger) {
	gocql.Logger = driverLogger{logger: log.With(logger, "component", "gocql")}
}
