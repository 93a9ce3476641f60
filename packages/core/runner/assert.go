package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
	"github.com/abdul-hamid-achik/hitdesk/packages/http"
)

// AssertionResult is the outcome of one EXPECTED_RESPONSE_* line.
type AssertionResult struct {
	Kind     parser.AssertionKind
	Expected string
	Actual   string
	Passed   bool
	Message  string
}

// evaluate checks a against resp. Status must match exactly; body and
// header expectations are substring matches, header names case-insensitive.
func evaluate(a *parser.Assertion, expected string, resp *http.Response) *AssertionResult {
	result := &AssertionResult{Kind: a.Kind, Expected: expected}

	switch a.Kind {
	case parser.AssertStatus:
		result.Actual = strconv.Itoa(resp.StatusCode)
		want, err := strconv.Atoi(strings.TrimSpace(expected))
		if err != nil {
			result.Message = "invalid expected status code " + strconv.Quote(expected)
			return result
		}
		result.Passed = resp.StatusCode == want
		if !result.Passed {
			result.Message = fmt.Sprintf("expected status %d, got %d", want, resp.StatusCode)
		}

	case parser.AssertBody:
		body := resp.BodyString()
		result.Actual = body
		result.Passed = strings.Contains(body, expected)
		if !result.Passed {
			result.Message = fmt.Sprintf("expected body to contain %q", expected)
		}

	case parser.AssertHeaders:
		name, value, ok := strings.Cut(expected, ":")
		if !ok {
			result.Message = "invalid header expectation, want 'Name: Value'"
			return result
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		for k, values := range resp.Headers {
			if !strings.EqualFold(k, name) {
				continue
			}
			result.Actual = strings.Join(values, ", ")
			for _, v := range values {
				if strings.Contains(v, value) {
					result.Passed = true
				}
			}
		}
		if !result.Passed {
			result.Message = fmt.Sprintf("expected header %q with value containing %q", name, value)
		}

	default:
		result.Message = "unknown assertion " + a.Kind.String()
	}

	return result
}
