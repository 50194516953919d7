package core

import (
	"strconv"
	"strings"

	"github.com/gocql/gocql"
)

// Duration is a CQL duration. Months and days are kept apart from the
// nanoseconds because their length depends on the calendar.
type Duration struct {
	Months      int32
	Days        int32
	Nanoseconds int64
}

var durationUnits = []struct {
	name string
	size int64
}{
	{"h", 3600 * 1e9},
	{"m", 60 * 1e9},
	{"s", 1e9},
	{"ms", 1e6},
	{"us", 1e3},
	{"ns", 1},
}

// String formats the duration the way cqlsh does, e.g. 1y2mo3d4h5m6s.
func (d Duration) String() string {
	if d == (Duration{}) {
		return "0s"
	}

	months, days, nanos := int64(d.Months), int64(d.Days), d.Nanoseconds

	sb := &strings.Builder{}
	if months < 0 || days < 0 || nanos < 0 {
		sb.WriteByte('-')
		months, days, nanos = abs(months), abs(days), abs(nanos)
	}

	writeUnit := func(n int64, unit string) {
		if n == 0 {
			return
		}
		sb.WriteString(strconv.FormatInt(n, 10))
		sb.WriteString(unit)
	}

	writeUnit(months/12, "y")
	writeUnit(months%12, "mo")
	writeUnit(days, "d")
	for _, u := range durationUnits {
		writeUnit(nanos/u.size, u.name)
		nanos %= u.size
	}

	return sb.String()
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func (d Duration) toDriver() gocql.Duration {
	return gocql.Duration{Months: d.Months, Days: d.Days, Nanoseconds: d.Nanoseconds}
}

func durationFromDriver(d gocql.Duration) Duration {
	return Duration{Months: d.Months, Days: d.Days, Nanoseconds: d.Nanoseconds}
}
