package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary Summary                    `json:"summary"`
	Results []*backend.ExecutionResult `json:"results"`
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResults(results []*backend.ExecutionResult) error {
	if results == nil {
		results = []*backend.ExecutionResult{}
	}
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONOutput{Summary: Summarize(results), Results: results})
}
