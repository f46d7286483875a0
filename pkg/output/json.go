package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sinkscope/sinkscope/pkg/models"
)

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, report *models.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report as JSON: %w", err)
	}
	return nil
}
