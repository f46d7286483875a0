// Package graphloader reads graph documents from JSON or YAML files,
// validates them against the embedded schema, and assembles the immutable
// analysis graph. Schema validation constrains document shape and the fixed
// enums (node kinds, branch conditions); role tags deliberately pass through
// so the classifier can fail closed on unknown ones with a warning instead
// of rejecting the whole document.
package graphloader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/sinkscope/sinkscope/pkg/analysis/roles"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

//go:embed schema.json
var schemaJSON string

// SupportedSchemaVersion is the graph document version this loader accepts.
// Documents without a schema_version are assumed current.
const SupportedSchemaVersion = "1"

// Format selects the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ValidationError reports a graph document that failed schema or semantic
// validation. It is a structural input error.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("invalid graph document: %s", e.Reason)
	}
	return fmt.Sprintf("invalid graph document %s: %s", e.File, e.Reason)
}

// Structural marks the error as a malformed-input failure.
func (e *ValidationError) Structural() {}

// Result is a loaded, assembled graph together with the classification
// warnings collected while resolving role tags.
type Result struct {
	Graph    *graph.Graph
	Warnings []models.Warning
}

// Loader reads and validates graph documents.
type Loader struct {
	logger     *slog.Logger
	classifier *roles.Classifier
	schema     *jsonschema.Schema
}

// NewLoader creates a graph loader with the embedded schema compiled.
func NewLoader(logger *slog.Logger) (*Loader, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded graph schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("graph.schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to register graph schema: %w", err)
	}
	schema, err := compiler.Compile("graph.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph schema: %w", err)
	}

	return &Loader{
		logger:     logger,
		classifier: roles.NewClassifier(logger),
		schema:     schema,
	}, nil
}

// LoadFromFile loads a graph document, picking the format from the file
// extension (.yaml and .yml decode as YAML, everything else as JSON).
func (l *Loader) LoadFromFile(filePath string) (*Result, error) {
	cleanPath := filepath.Clean(filePath)
	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file %s: %w", filePath, err)
	}
	defer file.Close()

	return l.LoadFromReader(file, formatForPath(cleanPath), filePath)
}

// LoadFromReader loads a graph document from a reader. name is used in
// error messages only.
func (l *Loader) LoadFromReader(reader io.Reader, format Format, name string) (*Result, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}

	if err := l.validate(data, format, name); err != nil {
		return nil, err
	}

	var doc models.GraphDocument
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &ValidationError{File: name, Reason: err.Error()}
	}
	if doc.SchemaVersion != "" && doc.SchemaVersion != SupportedSchemaVersion {
		return nil, &ValidationError{File: name, Reason: fmt.Sprintf("unsupported schema_version %q", doc.SchemaVersion)}
	}

	g, warnings, err := l.Assemble(&doc)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Loaded graph document", "file", name,
		"nodes", len(doc.Nodes), "edges", len(doc.Edges),
		"registered_entry_points", len(doc.EntryPoints), "warnings", len(warnings))
	return &Result{Graph: g, Warnings: warnings}, nil
}

// Assemble builds the analysis graph from an already-decoded document. Role
// tags are resolved through the classifier; its warnings are returned
// alongside the graph.
func (l *Loader) Assemble(doc *models.GraphDocument) (*graph.Graph, []models.Warning, error) {
	builder := graph.NewBuilder(doc.Name)
	var warnings []models.Warning

	for _, spec := range doc.Nodes {
		kind, err := models.ParseNodeKind(spec.Kind)
		if err != nil {
			return nil, nil, &ValidationError{Reason: fmt.Sprintf("node %s: %v", spec.ID, err)}
		}

		classification, roleWarnings := l.classifier.Classify(spec)
		warnings = append(warnings, roleWarnings...)

		node := graph.Node{
			ID:       spec.ID,
			Kind:     kind,
			Role:     classification.Role,
			Strength: classification.Strength,
			Protects: classification.Protects,
		}
		if spec.Sink != nil {
			if kind != models.KindSink {
				warnings = append(warnings, models.Warning{
					NodeID:  spec.ID,
					Message: "sink metadata on a non-sink node is ignored",
				})
			} else {
				node.SinkKind = models.SinkKind(spec.Sink.Kind)
			}
		}

		if err := builder.AddNode(node); err != nil {
			return nil, nil, fmt.Errorf("failed to add node %s: %w", spec.ID, err)
		}
	}

	for _, spec := range doc.Edges {
		condition, err := models.ParseBranchCondition(spec.Condition)
		if err != nil {
			return nil, nil, &ValidationError{Reason: fmt.Sprintf("edge %s->%s: %v", spec.From, spec.To, err)}
		}
		if err := builder.AddEdge(spec.From, spec.To, condition); err != nil {
			return nil, nil, fmt.Errorf("failed to add edge %s->%s: %w", spec.From, spec.To, err)
		}
	}

	for _, id := range doc.EntryPoints {
		if err := builder.MarkEntryRegistered(id); err != nil {
			return nil, nil, fmt.Errorf("failed to register entry point %s: %w", id, err)
		}
	}

	return builder.Build(), warnings, nil
}

// validate checks the raw document against the embedded schema. YAML
// documents are decoded to generic values first so the same schema applies
// to both encodings.
func (l *Loader) validate(data []byte, format Format, name string) error {
	var instance any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &instance)
	default:
		instance, err = jsonschema.UnmarshalJSON(bytes.NewReader(data))
	}
	if err != nil {
		return &ValidationError{File: name, Reason: err.Error()}
	}

	if err := l.schema.Validate(instance); err != nil {
		return &ValidationError{File: name, Reason: err.Error()}
	}
	return nil
}

func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
