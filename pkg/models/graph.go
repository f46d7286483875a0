package models

import "fmt"

// NodeKind identifies the structural flavor of a graph node.
type NodeKind int

const (
	KindEntryPoint NodeKind = iota
	KindCall
	KindBranch
	KindSink
)

func (k NodeKind) String() string {
	switch k {
	case KindEntryPoint:
		return "entry_point"
	case KindCall:
		return "call"
	case KindBranch:
		return "branch"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// ParseNodeKind parses the wire form of a node kind.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "entry_point":
		return KindEntryPoint, nil
	case "call":
		return KindCall, nil
	case "branch":
		return KindBranch, nil
	case "sink":
		return KindSink, nil
	default:
		return KindCall, fmt.Errorf("unknown node kind %q", s)
	}
}

// Role is the semantic role derived from a node's declared tags. Roles are
// explicit data; they are never inferred from node names.
type Role int

const (
	RoleNone Role = iota
	RoleSource
	RoleSanitizer
	RoleValidator
	RoleAuthzGate
	RoleRateLimiter
	RoleDeadGuard
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleSource:
		return "source"
	case RoleSanitizer:
		return "sanitizer"
	case RoleValidator:
		return "validator"
	case RoleAuthzGate:
		return "authz-gate"
	case RoleRateLimiter:
		return "rate-limiter"
	case RoleDeadGuard:
		return "dead-guard"
	default:
		return "none"
	}
}

// ParseRole parses the wire form of a role tag. Unknown tags are an error so
// that callers fail closed instead of treating them as protective.
func ParseRole(s string) (Role, error) {
	switch s {
	case "", "none":
		return RoleNone, nil
	case "source":
		return RoleSource, nil
	case "sanitizer":
		return RoleSanitizer, nil
	case "validator":
		return RoleValidator, nil
	case "authz-gate":
		return RoleAuthzGate, nil
	case "rate-limiter":
		return RoleRateLimiter, nil
	case "dead-guard":
		return RoleDeadGuard, nil
	default:
		return RoleNone, fmt.Errorf("unknown role tag %q", s)
	}
}

// Strength ranks validators. Strict validation neutralizes taint; weak
// validation only mitigates it.
type Strength int

const (
	StrengthNone Strength = iota
	StrengthWeak
	StrengthStrict
)

func (s Strength) String() string {
	switch s {
	case StrengthStrict:
		return "strict"
	case StrengthWeak:
		return "weak"
	default:
		return "none"
	}
}

// ParseStrength parses the wire form of a validator strength. The empty
// string means unspecified; callers decide the fail-closed default.
func ParseStrength(s string) (Strength, error) {
	switch s {
	case "":
		return StrengthNone, nil
	case "weak":
		return StrengthWeak, nil
	case "strict":
		return StrengthStrict, nil
	default:
		return StrengthNone, fmt.Errorf("unknown validator strength %q", s)
	}
}

// BranchCondition guards an edge. Never marks everything reachable only
// through the edge as dead code; Runtime is conservatively reachable.
type BranchCondition int

const (
	ConditionAlways BranchCondition = iota
	ConditionNever
	ConditionRuntime
)

func (c BranchCondition) String() string {
	switch c {
	case ConditionAlways:
		return "always"
	case ConditionNever:
		return "never"
	case ConditionRuntime:
		return "runtime"
	default:
		return "always"
	}
}

// ParseBranchCondition parses the wire form of an edge condition. The empty
// string defaults to always (an unconditional call edge).
func ParseBranchCondition(s string) (BranchCondition, error) {
	switch s {
	case "", "always":
		return ConditionAlways, nil
	case "never":
		return ConditionNever, nil
	case "runtime":
		return ConditionRuntime, nil
	default:
		return ConditionAlways, fmt.Errorf("unknown branch condition %q", s)
	}
}

// MarshalJSON renders the condition in its wire form.
func (c BranchCondition) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON parses the wire form of a condition.
func (c *BranchCondition) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBranchCondition(unquote(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML renders the condition in its wire form.
func (c BranchCondition) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// SinkKind is the declared subtype of a sink operation.
type SinkKind string

const (
	SinkSQL      SinkKind = "sql"
	SinkTemplate SinkKind = "template"
)

// GraphDocument is the on-disk graph description accepted by the loader.
// It mirrors the ingestion interface: nodes with declared role tags, edges
// with branch conditions, and the authoritative registered entry-point list.
type GraphDocument struct {
	SchemaVersion string     `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Name          string     `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes         []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges         []EdgeSpec `json:"edges" yaml:"edges"`
	EntryPoints   []string   `json:"entry_points" yaml:"entry_points"`
}

// NodeSpec declares one node of the graph document.
type NodeSpec struct {
	ID    string     `json:"id" yaml:"id"`
	Kind  string     `json:"kind" yaml:"kind"`
	Roles []RoleSpec `json:"roles,omitempty" yaml:"roles,omitempty"`
	Sink  *SinkSpec  `json:"sink,omitempty" yaml:"sink,omitempty"`
}

// RoleSpec is one declared role tag on a node.
type RoleSpec struct {
	Role     string `json:"role" yaml:"role"`
	Strength string `json:"strength,omitempty" yaml:"strength,omitempty"`
	Protects string `json:"protects,omitempty" yaml:"protects,omitempty"`
}

// SinkSpec carries sink-only metadata.
type SinkSpec struct {
	Kind string `json:"kind" yaml:"kind"`
}

// EdgeSpec declares one directed edge of the graph document.
type EdgeSpec struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// unquote strips the surrounding quotes of a JSON string literal without
// pulling in a full decode for the trivial enum cases.
func unquote(data []byte) string {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
