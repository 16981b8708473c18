package gate

import (
	"fmt"
	"strings"
)

// Severity only ever moves upward during one evaluation: GREEN < YELLOW < RED.
type Severity int

const (
	Green Severity = iota
	Yellow
	Red
)

func (s Severity) String() string {
	switch s {
	case Green:
		return "GREEN"
	case Yellow:
		return "YELLOW"
	case Red:
		return "RED"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GREEN":
		return Green, nil
	case "YELLOW":
		return Yellow, nil
	case "RED":
		return Red, nil
	default:
		return Green, fmt.Errorf("unknown severity %q", s)
	}
}

func Worst(a, b Severity) Severity {
	return max(a, b)
}

// Verdict is the outcome of one gate pass: Red(issues), Yellow(issues) or Green.
type Verdict struct {
	Status Severity
	Issues []string
}

// Decide runs the hard predicates first. Any hard issue makes the verdict RED
// and the soft predicates are never consulted; otherwise soft issues make it
// YELLOW.
func Decide(hard []string, soft func() []string) Verdict {
	if len(hard) > 0 {
		return Verdict{Status: Red, Issues: hard}
	}
	if soft != nil {
		if issues := soft(); len(issues) > 0 {
			return Verdict{Status: Yellow, Issues: issues}
		}
	}
	return Verdict{Status: Green, Issues: []string{}}
}
