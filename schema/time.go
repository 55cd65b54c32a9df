package schema

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SchedulerDontRun is update interval value meaning "never"
const SchedulerDontRun uint32 = math.MaxUint32

type TimePeriod struct {
	time.Duration
	Never bool
}

func (t TimePeriod) Milliseconds() uint32 {
	if t.Never {
		return SchedulerDontRun
	}
	ms := t.Duration.Milliseconds()
	if ms >= int64(SchedulerDontRun) {
		return SchedulerDontRun - 1
	}
	return uint32(ms)
}

func (t TimePeriod) String() string {
	if t.Never {
		return "never"
	}
	return t.Duration.String()
}

var timePeriodRe = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]*)\s*(\w*)$`)

var timeUnits = map[string]time.Duration{
	"us": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "seconds": time.Second,
	"min": time.Minute, "mins": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "days": 24 * time.Hour,
}

func parseTimePeriod(v any) (TimePeriod, error) {
	switch t := v.(type) {
	case int, int64, uint64, float64:
		return TimePeriod{}, Errorf("don't know what '%v' means as it has no time *unit*! Did you mean '%vs'?", t, t)
	case string:
		s := strings.TrimSpace(t)
		if strings.ToLower(s) == "never" {
			return TimePeriod{Never: true}, nil
		}
		if m := timePeriodRe.FindStringSubmatch(s); m != nil && m[1] != "" {
			if m[2] == "" {
				return TimePeriod{}, Errorf("don't know what '%s' means as it has no time *unit*! Did you mean '%ss'?", s, s)
			}
			if unit, ok := timeUnits[m[2]]; ok {
				f, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					return TimePeriod{}, Errorf("invalid time period '%s'", s)
				}
				return TimePeriod{Duration: time.Duration(f * float64(unit))}, nil
			}
		}
		// compound Go style durations like 1m30s
		d, err := time.ParseDuration(s)
		if err != nil {
			return TimePeriod{}, Errorf("invalid time period '%s'", s)
		}
		return TimePeriod{Duration: d}, nil
	default:
		return TimePeriod{}, Errorf("expected time period, got %s", describe(v))
	}
}

// PositiveTimePeriod accepts duration greater than zero. With allowNever "never" is accepted too.
func PositiveTimePeriod(allowNever bool) Validator {
	return func(_ *Context, v any) (any, error) {
		tp, err := parseTimePeriod(v)
		if err != nil {
			return nil, err
		}
		if tp.Never {
			if !allowNever {
				return nil, Errorf("'never' is not allowed here")
			}
			return tp, nil
		}
		if tp.Duration <= 0 {
			return nil, Errorf("time period must be positive, got %s", tp.Duration)
		}
		return tp, nil
	}
}

var frequencyRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([kKmMgG]?)(?:[hH][zZ])?$`)

// Frequency accepts plain number in Hz or value with unit (50kHz, 1MHz)
func Frequency(_ *Context, v any) (any, error) {
	switch t := v.(type) {
	case int, int64, uint64, float64:
		f, _ := Float(nil, t)
		if f.(float64) <= 0 {
			return nil, Errorf("frequency must be positive")
		}
		return f, nil
	case string:
		m := frequencyRe.FindStringSubmatch(strings.TrimSpace(t))
		if m == nil {
			return nil, Errorf("invalid frequency '%s'", t)
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, Errorf("invalid frequency '%s'", t)
		}
		switch strings.ToLower(m[2]) {
		case "k":
			f *= 1e3
		case "m":
			f *= 1e6
		case "g":
			f *= 1e9
		}
		if f <= 0 {
			return nil, Errorf("frequency must be positive")
		}
		return f, nil
	default:
		return nil, Errorf("expected frequency, got %s", describe(v))
	}
}
