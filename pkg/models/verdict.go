package models

import "fmt"

// PathVerdict classifies a single enumerated path.
type PathVerdict int

const (
	PathVulnerable PathVerdict = iota
	PathSanitized
	PathAuthProtected
	PathPartiallyMitigated
	PathDead
)

func (v PathVerdict) String() string {
	switch v {
	case PathVulnerable:
		return "VULNERABLE"
	case PathSanitized:
		return "SANITIZED"
	case PathAuthProtected:
		return "AUTH_PROTECTED"
	case PathPartiallyMitigated:
		return "PARTIALLY_MITIGATED"
	case PathDead:
		return "DEAD"
	default:
		return "VULNERABLE"
	}
}

// ParsePathVerdict parses the wire form of a path verdict.
func ParsePathVerdict(s string) (PathVerdict, error) {
	switch s {
	case "VULNERABLE":
		return PathVulnerable, nil
	case "SANITIZED":
		return PathSanitized, nil
	case "AUTH_PROTECTED":
		return PathAuthProtected, nil
	case "PARTIALLY_MITIGATED":
		return PathPartiallyMitigated, nil
	case "DEAD":
		return PathDead, nil
	default:
		return PathVulnerable, fmt.Errorf("unknown path verdict %q", s)
	}
}

// Exploitable reports whether a path with this verdict is still treated as
// exploitable. Partially mitigated paths count as exploitable.
func (v PathVerdict) Exploitable() bool {
	return v == PathVulnerable || v == PathPartiallyMitigated
}

func (v PathVerdict) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

func (v *PathVerdict) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePathVerdict(unquote(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v PathVerdict) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// SinkVerdict is the aggregate classification of one sink over all of its
// paths. Declared in descending severity order so that the smallest value
// among a set is the worst.
type SinkVerdict int

const (
	VerdictMustFix SinkVerdict = iota
	VerdictGoodToFix
	VerdictFalsePositive
	VerdictDeadCode
)

func (v SinkVerdict) String() string {
	switch v {
	case VerdictMustFix:
		return "MUST_FIX"
	case VerdictGoodToFix:
		return "GOOD_TO_FIX"
	case VerdictFalsePositive:
		return "FALSE_POSITIVE"
	case VerdictDeadCode:
		return "DEAD_CODE"
	default:
		return "MUST_FIX"
	}
}

// ParseSinkVerdict parses the wire form of a sink verdict.
func ParseSinkVerdict(s string) (SinkVerdict, error) {
	switch s {
	case "MUST_FIX":
		return VerdictMustFix, nil
	case "GOOD_TO_FIX":
		return VerdictGoodToFix, nil
	case "FALSE_POSITIVE":
		return VerdictFalsePositive, nil
	case "DEAD_CODE":
		return VerdictDeadCode, nil
	default:
		return VerdictMustFix, fmt.Errorf("unknown sink verdict %q", s)
	}
}

func (v SinkVerdict) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

func (v *SinkVerdict) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSinkVerdict(unquote(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v SinkVerdict) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Confidence grades how certain the aggregate classification is.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// Downgrade lowers confidence by one level, saturating at low.
func (c Confidence) Downgrade() Confidence {
	if c > ConfidenceLow {
		return c - 1
	}
	return ConfidenceLow
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *Confidence) UnmarshalJSON(data []byte) error {
	switch unquote(data) {
	case "high":
		*c = ConfidenceHigh
	case "medium":
		*c = ConfidenceMedium
	case "low":
		*c = ConfidenceLow
	default:
		return fmt.Errorf("unknown confidence %q", unquote(data))
	}
	return nil
}

func (c Confidence) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Dead-path reasons recorded by the enumerator.
const (
	DeadReasonNeverEdge         = "never-edge"
	DeadReasonUnregisteredEntry = "unregistered-entry"
)

// Path is one enumerated entry-to-sink traversal. Conditions holds the
// branch condition of each traversed edge, so len(Conditions) is always
// len(Nodes)-1.
type Path struct {
	EntryPoint      string
	SinkID          string
	Nodes           []string
	Conditions      []BranchCondition
	EntryRegistered bool
	DeadReason      string
	Truncated       bool
	TruncatedAt     string
}

// Live reports whether the path is reachable at runtime: its entry point is
// registered and no traversed edge is never-taken.
func (p *Path) Live() bool {
	if !p.EntryRegistered {
		return false
	}
	for _, c := range p.Conditions {
		if c == ConditionNever {
			return false
		}
	}
	return true
}

// PathEvaluation pairs a path with its verdict and the evidence collected
// while classifying it.
type PathEvaluation struct {
	Path         Path
	Verdict      PathVerdict
	AuthGateSeen bool
	Evidence     []string
}
