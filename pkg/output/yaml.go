package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sinkscope/sinkscope/pkg/models"
)

// WriteYAML renders the report as YAML.
func WriteYAML(w io.Writer, report *models.Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		encoder.Close()
		return fmt.Errorf("failed to encode report as YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML report: %w", err)
	}
	return nil
}
