package valueobjects

import "fmt"

// Severity is the closed set of alert severities.
type Severity uint8

const (
	SeverityInfo Severity = iota + 1
	SeverityAdvisory
	SeverityUrgent
	SeveritySuccess
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityAdvisory: "advisory",
	SeverityUrgent:   "urgent",
	SeveritySuccess:  "success",
}

// ParseSeverity maps a wire name back to a Severity.
func ParseSeverity(s string) (Severity, error) {
	for sev, name := range severityNames {
		if name == s {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TriggerSource is where a trigger candidate came from.
type TriggerSource uint8

const (
	SourceGesture TriggerSource = iota + 1
	SourceAudio
	SourceManual
)

func (s TriggerSource) String() string {
	switch s {
	case SourceGesture:
		return "gesture"
	case SourceAudio:
		return "audio"
	case SourceManual:
		return "manual"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s TriggerSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
