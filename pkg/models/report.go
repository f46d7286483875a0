package models

// Report is the complete serializable result of one classification run.
// Ordering is deterministic: sinks and entry points in declaration order,
// paths in enumeration order.
type Report struct {
	ReportVersion string             `json:"report_version" yaml:"report_version"`
	CreationInfo  CreationInfo       `json:"creation_info" yaml:"creation_info"`
	GraphName     string             `json:"graph_name,omitempty" yaml:"graph_name,omitempty"`
	Sinks         []SinkReport       `json:"sinks" yaml:"sinks"`
	EntryPoints   []EntryPointReport `json:"entry_points" yaml:"entry_points"`
	Summary       Summary            `json:"summary" yaml:"summary"`
	Warnings      []Warning          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// CreationInfo contains metadata about report generation.
type CreationInfo struct {
	ReportID    string `json:"report_id" yaml:"report_id"`
	Created     string `json:"created" yaml:"created"`
	ToolName    string `json:"tool_name" yaml:"tool_name"`
	ToolVersion string `json:"tool_version" yaml:"tool_version"`
	GraphFile   string `json:"graph_file,omitempty" yaml:"graph_file,omitempty"`
}

// SinkReport is the per-sink aggregate: the overall verdict plus every
// contributing path as evidence. Error is set when analysis of this sink
// failed; the rest of the run is unaffected.
type SinkReport struct {
	SinkID         string       `json:"sink_id" yaml:"sink_id"`
	SinkKind       SinkKind     `json:"sink_kind,omitempty" yaml:"sink_kind,omitempty"`
	OverallVerdict SinkVerdict  `json:"overall_verdict" yaml:"overall_verdict"`
	Reasons        []string     `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Confidence     Confidence   `json:"confidence" yaml:"confidence"`
	Rationale      string       `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	LivePaths      int          `json:"live_paths" yaml:"live_paths"`
	DeadPaths      int          `json:"dead_paths" yaml:"dead_paths"`
	Paths          []PathReport `json:"paths" yaml:"paths"`
	Error          string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// PathReport is one path's evidence chain in the report.
type PathReport struct {
	Nodes        []string          `json:"nodes" yaml:"nodes"`
	Conditions   []BranchCondition `json:"conditions" yaml:"conditions"`
	Verdict      PathVerdict       `json:"verdict" yaml:"verdict"`
	AuthGateSeen bool              `json:"auth_gate_seen" yaml:"auth_gate_seen"`
	DeadReason   string            `json:"dead_reason,omitempty" yaml:"dead_reason,omitempty"`
	Evidence     []string          `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Truncated    bool              `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// EntryPointReport rolls up the sinks reachable from one entry point.
// WorstVerdict is empty when the entry point reaches no sinks.
type EntryPointReport struct {
	ID             string   `json:"id" yaml:"id"`
	Registered     bool     `json:"registered" yaml:"registered"`
	ReachableSinks []string `json:"reachable_sinks,omitempty" yaml:"reachable_sinks,omitempty"`
	WorstVerdict   string   `json:"worst_verdict,omitempty" yaml:"worst_verdict,omitempty"`
}

// Summary holds whole-run counts.
type Summary struct {
	TotalSinks     int `json:"total_sinks" yaml:"total_sinks"`
	MustFix        int `json:"must_fix" yaml:"must_fix"`
	GoodToFix      int `json:"good_to_fix" yaml:"good_to_fix"`
	FalsePositives int `json:"false_positive" yaml:"false_positive"`
	DeadCode       int `json:"dead_code" yaml:"dead_code"`
	TotalPaths     int `json:"total_paths" yaml:"total_paths"`
	LivePaths      int `json:"live_paths" yaml:"live_paths"`
	DeadPaths      int `json:"dead_paths" yaml:"dead_paths"`
	AnalysisErrors int `json:"analysis_errors" yaml:"analysis_errors"`
}

// Warning surfaces a non-fatal input problem, such as an unknown role tag.
type Warning struct {
	NodeID  string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Message string `json:"message" yaml:"message"`
}
