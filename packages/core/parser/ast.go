package parser

import (
	"strconv"
	"time"
)

type File struct {
	Path      string
	Variables []*Variable
	Requests  []*Request
}

type Variable struct {
	Name  string
	Value string
	Line  int
}

type Request struct {
	Name        string
	Method      string
	URL         string
	HTTPVersion string
	Headers     []*Header
	Body        string
	Assertions  []*Assertion
	Line        int

	// Timeout and ConnectionTimeout override the client defaults when set.
	Timeout           time.Duration
	ConnectionTimeout time.Duration
	// DependsOn names a request that must have passed earlier in the run.
	DependsOn  string
	Conditions []*Condition
}

type Header struct {
	Key   string
	Value string
	Line  int
}

type Assertion struct {
	Kind     AssertionKind
	Expected string
	Line     int
}

// Condition gates a request on the response of an earlier one:
// "# @if login.response.status 200" or
// "# @if-not login.response.body.$.role guest".
type Condition struct {
	Request  string
	Field    ConditionField
	Path     string
	Expected string
	Negate   bool
	Line     int
}

type ConditionField int

const (
	ConditionStatus ConditionField = iota
	ConditionBody
)

func (c *Condition) String() string {
	ref := c.Request + ".response.status"
	if c.Field == ConditionBody {
		ref = c.Request + ".response.body." + c.Path
	}
	directive := "@if"
	if c.Negate {
		directive = "@if-not"
	}
	return directive + " " + ref + " " + c.Expected
}

type AssertionKind int

const (
	AssertStatus AssertionKind = iota
	AssertBody
	AssertHeaders
)

func (k AssertionKind) String() string {
	switch k {
	case AssertStatus:
		return "status"
	case AssertBody:
		return "body"
	case AssertHeaders:
		return "headers"
	default:
		return "unknown"
	}
}

// VariableMap returns the file variables as a map. Later definitions win.
func (f *File) VariableMap() map[string]string {
	vars := make(map[string]string, len(f.Variables))
	for _, v := range f.Variables {
		vars[v.Name] = v.Value
	}
	return vars
}

type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
