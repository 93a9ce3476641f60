package output

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// FormatBody pretty-prints body when it is valid JSON and returns it
// unchanged otherwise.
func FormatBody(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	// Scalars such as a bare number are valid JSON but gain nothing.
	if r := gjson.Parse(body); !r.IsObject() && !r.IsArray() {
		return body
	}
	// Width 0 puts every array element on its own line.
	out := pretty.PrettyOptions([]byte(body), &pretty.Options{Indent: "  "})
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return string(out)
}
