package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

const (
	// NoResultsPlaceholder is printed for an empty result list.
	NoResultsPlaceholder = "No results"
	// FailedLabel replaces the status of an unsuccessful result.
	FailedLabel = "Failed"
	// SkippedLabel replaces the status of a request that was not sent.
	SkippedLabel = "Skipped"
)

type ConsoleFormatter struct {
	writer  io.Writer
	summary bool
	indent  string

	green  *color.Color
	red    *color.Color
	cyan   *color.Color
	bold   *color.Color
	faint  *color.Color
	yellow *color.Color
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer:  os.Stdout,
		summary: true,
		indent:  "    ",
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
		yellow:  color.New(color.FgYellow),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if !nc {
			return
		}
		for _, c := range []*color.Color{f.green, f.red, f.cyan, f.bold, f.faint, f.yellow} {
			c.DisableColor()
		}
	}
}

// WithSummary toggles the trailing summary line.
func WithSummary(show bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.summary = show
	}
}

// FormatResults prints each result as a header line (method, status with
// duration, "Skipped" or "Failed"), the URL, and then the error, the skip
// reason or the body. A nil entry is printed as a bare "Failed" line.
func (f *ConsoleFormatter) FormatResults(results []*backend.ExecutionResult) {
	if len(results) == 0 {
		fmt.Fprintln(f.writer, f.faint.Sprint(NoResultsPlaceholder))
		return
	}

	for _, r := range results {
		f.formatResult(r)
	}

	if f.summary {
		f.formatSummary(Summarize(results))
	}
}

func (f *ConsoleFormatter) formatResult(r *backend.ExecutionResult) {
	if r == nil {
		fmt.Fprintf(f.writer, "%s\n\n", f.red.Sprint(FailedLabel))
		return
	}

	status := f.red.Sprint(FailedLabel)
	switch {
	case r.Skipped:
		status = f.yellow.Sprint(SkippedLabel)
	case r.Success && r.Status != nil:
		status = f.green.Sprintf("%d", *r.Status)
		if r.DurationMs != nil {
			status += " " + f.cyan.Sprintf("(%dms)", *r.DurationMs)
		}
	}

	fmt.Fprintf(f.writer, "%s %s\n", f.bold.Sprint(r.Method), status)
	fmt.Fprintf(f.writer, "  %s\n", r.URL)

	switch {
	case r.Skipped:
		fmt.Fprintf(f.writer, "  %s\n", f.yellow.Sprintf("Skipped: %s", r.SkipReason))
	case r.Error != "":
		fmt.Fprintf(f.writer, "  %s\n", f.red.Sprintf("Error: %s", r.Error))
	case r.ResponseBody != nil && *r.ResponseBody != "":
		body := FormatBody(*r.ResponseBody)
		fmt.Fprintln(f.writer, f.indent+strings.ReplaceAll(body, "\n", "\n"+f.indent))
	}
	fmt.Fprintln(f.writer)
}

func (f *ConsoleFormatter) formatSummary(s Summary) {
	parts := []string{}
	if s.Passed > 0 {
		parts = append(parts, f.green.Sprintf("%d passed", s.Passed))
	}
	if s.Failed > 0 {
		parts = append(parts, f.red.Sprintf("%d failed", s.Failed))
	}
	if s.Skipped > 0 {
		parts = append(parts, f.yellow.Sprintf("%d skipped", s.Skipped))
	}
	parts = append(parts, fmt.Sprintf("%d total", s.Total))

	fmt.Fprintf(f.writer, "Requests: %s\n", strings.Join(parts, ", "))
	if s.Timed > 0 {
		fmt.Fprintf(f.writer, "Time:     p50 %dms, p95 %dms, max %dms\n", s.P50Ms, s.P95Ms, s.MaxMs)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", f.red.Sprint("Error:"), err)
}

// FormatWarning prints a printf-style warning line.
func (f *ConsoleFormatter) FormatWarning(format string, args ...any) {
	fmt.Fprintf(f.writer, "%s %s\n", f.yellow.Sprint("warning:"), fmt.Sprintf(format, args...))
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", f.bold.Sprint("hitdesk"), version)
}
