package gfs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rtm0/upperair/internal/units"
)

// timeUnits is a decoded CF time unit such as "hours since 1900-01-01".
type timeUnits struct {
	unit units.Unit
	ref  time.Time
}

var refLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04",
	"2006-01-02T15:04Z",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

func parseTimeUnits(s string) (timeUnits, error) {
	unit, ref, ok := strings.Cut(s, " since ")
	if !ok {
		return timeUnits{}, fmt.Errorf("%q is not a CF time unit", s)
	}
	u, err := units.Parse(unit)
	if err != nil || u.Dim != units.Time {
		return timeUnits{}, fmt.Errorf("%q is not a CF time unit", s)
	}
	ref = strings.TrimSpace(ref)
	for _, layout := range refLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return timeUnits{unit: u, ref: t.UTC()}, nil
		}
	}
	return timeUnits{}, fmt.Errorf("cannot parse reference time %q", ref)
}

func (t timeUnits) decode(values []float64) []time.Time {
	out := make([]time.Time, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		secs, _ := units.Convert(v, t.unit, units.Second)
		out[i] = t.ref.Add(time.Duration(math.Round(secs * float64(time.Second))))
	}
	return out
}
