package parser

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var methods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
	"TRACE":   true,
	"CONNECT": true,
}

var assertionPrefixes = []struct {
	prefix string
	kind   AssertionKind
}{
	{"EXPECTED_RESPONSE_STATUS ", AssertStatus},
	{"EXPECTED_RESPONSE_BODY ", AssertBody},
	{"EXPECTED_RESPONSE_HEADERS ", AssertHeaders},
}

type section int

const (
	sectionNone section = iota
	sectionHeaders
	sectionBody
)

type Parser struct {
	file        string
	lines       []string
	result      *File
	current     *Request
	section     section
	body        []string
	pendingName string
	pending     Request
	inScript    bool
	scriptLine  int
}

func NewParser(input string) *Parser {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	return &Parser{lines: strings.Split(input, "\n")}
}

func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), path)
}

func Parse(input, filename string) (*File, error) {
	p := NewParser(input)
	p.file = filename
	return p.ParseFile()
}

func (p *Parser) ParseFile() (*File, error) {
	p.result = &File{Path: p.file}

	for i, raw := range p.lines {
		if err := p.parseLine(raw, i+1); err != nil {
			return nil, err
		}
	}

	if p.inScript {
		return nil, p.errorf(p.scriptLine, "unterminated response handler script")
	}
	p.finishRequest()
	return p.result, nil
}

func (p *Parser) parseLine(raw string, line int) error {
	trimmed := strings.TrimSpace(raw)

	if p.inScript {
		if strings.HasSuffix(trimmed, "%}") {
			p.inScript = false
		}
		return nil
	}
	if strings.HasPrefix(trimmed, "> {%") {
		if !strings.HasSuffix(trimmed, "%}") || trimmed == "> {%" {
			p.inScript = true
			p.scriptLine = line
		}
		return nil
	}

	if trimmed == "" {
		switch p.section {
		case sectionHeaders:
			p.section = sectionBody
		case sectionBody:
			p.body = append(p.body, "")
		}
		return nil
	}

	if strings.HasPrefix(trimmed, "###") {
		p.finishRequest()
		p.pendingName = strings.TrimSpace(strings.TrimPrefix(trimmed, "###"))
		return nil
	}

	if name, ok := directive(trimmed, "@name"); ok {
		p.pendingName = name
		return nil
	}
	if handled, err := p.parseDirective(trimmed, line); handled {
		return err
	}

	if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
		return nil
	}

	if strings.HasPrefix(trimmed, "@") && p.section != sectionBody {
		return p.parseVariable(trimmed, line)
	}

	assertionLine := strings.TrimPrefix(trimmed, "> ")
	for _, a := range assertionPrefixes {
		if strings.HasPrefix(assertionLine, a.prefix) {
			if p.current == nil {
				return p.errorf(line, "assertion outside of a request")
			}
			expected := strings.TrimSpace(strings.TrimPrefix(assertionLine, a.prefix))
			p.current.Assertions = append(p.current.Assertions, &Assertion{
				Kind:     a.kind,
				Expected: unquote(expected),
				Line:     line,
			})
			return nil
		}
	}
	if strings.HasPrefix(trimmed, "> ") {
		// response handler file reference
		return nil
	}

	if fields := strings.Fields(trimmed); methods[fields[0]] {
		return p.parseRequestLine(fields, line)
	}

	switch p.section {
	case sectionHeaders:
		if key, value, ok := strings.Cut(trimmed, ":"); ok && !strings.ContainsAny(key, " {[\"") {
			p.current.Headers = append(p.current.Headers, &Header{
				Key:   strings.TrimSpace(key),
				Value: strings.TrimSpace(value),
				Line:  line,
			})
			return nil
		}
		p.section = sectionBody
		p.body = append(p.body, raw)
	case sectionBody:
		p.body = append(p.body, raw)
	default:
		return p.errorf(line, "unexpected content outside of a request: "+trimmed)
	}
	return nil
}

func (p *Parser) parseVariable(trimmed string, line int) error {
	name, value, ok := strings.Cut(trimmed[1:], "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return p.errorf(line, "invalid variable declaration: "+trimmed)
	}
	p.result.Variables = append(p.result.Variables, &Variable{
		Name:  name,
		Value: strings.TrimSpace(value),
		Line:  line,
	})
	return nil
}

func (p *Parser) parseRequestLine(fields []string, line int) error {
	if len(fields) < 2 {
		return p.errorf(line, "missing URL after "+fields[0])
	}
	p.finishRequest()
	p.current = &Request{
		Name:              p.pendingName,
		Method:            fields[0],
		URL:               fields[1],
		Line:              line,
		Timeout:           p.pending.Timeout,
		ConnectionTimeout: p.pending.ConnectionTimeout,
		DependsOn:         p.pending.DependsOn,
		Conditions:        p.pending.Conditions,
	}
	if len(fields) > 2 {
		p.current.HTTPVersion = fields[2]
	}
	p.pendingName = ""
	p.pending = Request{}
	p.section = sectionHeaders
	return nil
}

// parseDirective handles the per-request directives that apply to the next
// request line: @timeout, @connection-timeout, @dependsOn, @if and @if-not.
func (p *Parser) parseDirective(trimmed string, line int) (bool, error) {
	if value, ok := directive(trimmed, "@timeout"); ok {
		d, err := parseTimeout(value)
		if err != nil {
			return true, p.errorf(line, "invalid @timeout: "+value)
		}
		p.pending.Timeout = d
		return true, nil
	}
	if value, ok := directive(trimmed, "@connection-timeout"); ok {
		d, err := parseTimeout(value)
		if err != nil {
			return true, p.errorf(line, "invalid @connection-timeout: "+value)
		}
		p.pending.ConnectionTimeout = d
		return true, nil
	}
	if value, ok := directive(trimmed, "@dependsOn"); ok {
		if value == "" {
			return true, p.errorf(line, "@dependsOn needs a request name")
		}
		p.pending.DependsOn = value
		return true, nil
	}
	for _, d := range []struct {
		name   string
		negate bool
	}{{"@if", false}, {"@if-not", true}} {
		value, ok := directive(trimmed, d.name)
		if !ok {
			continue
		}
		cond, ok := parseCondition(value, d.negate)
		if !ok {
			return true, p.errorf(line, "invalid "+d.name+" condition: "+value)
		}
		cond.Line = line
		p.pending.Conditions = append(p.pending.Conditions, cond)
		return true, nil
	}
	return false, nil
}

// parseCondition parses "<request>.response.status <value>" and
// "<request>.response.body.<path> <value>".
func parseCondition(value string, negate bool) (*Condition, bool) {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return nil, false
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) < 3 || parts[0] == "" || parts[1] != "response" {
		return nil, false
	}
	cond := &Condition{
		Request:  parts[0],
		Expected: strings.Join(fields[1:], " "),
		Negate:   negate,
	}
	switch {
	case len(parts) == 3 && parts[2] == "status":
		cond.Field = ConditionStatus
	case len(parts) >= 4 && parts[2] == "body":
		cond.Field = ConditionBody
		cond.Path = strings.Join(parts[3:], ".")
	default:
		return nil, false
	}
	return cond, true
}

// parseTimeout reads "500ms", "30s", "2m" or a bare number of seconds.
func parseTimeout(value string) (time.Duration, error) {
	unit := time.Second
	num := value
	switch {
	case strings.HasSuffix(value, "ms"):
		unit, num = time.Millisecond, strings.TrimSuffix(value, "ms")
	case strings.HasSuffix(value, "m"):
		unit, num = time.Minute, strings.TrimSuffix(value, "m")
	case strings.HasSuffix(value, "s"):
		num = strings.TrimSuffix(value, "s")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 32)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

func (p *Parser) finishRequest() {
	if p.current == nil {
		return
	}
	p.current.Body = strings.TrimRight(strings.Join(p.body, "\n"), "\n")
	p.result.Requests = append(p.result.Requests, p.current)
	p.current = nil
	p.body = nil
	p.section = sectionNone
}

func (p *Parser) errorf(line int, msg string) *ParseError {
	return &ParseError{File: p.file, Line: line, Message: msg}
}

// directive matches "# @name value" and "// @name value".
func directive(line, name string) (string, bool) {
	for _, prefix := range []string{"# " + name, "// " + name} {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			if rest == "" || rest[0] == ' ' || rest[0] == '=' {
				return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "=")), true
			}
		}
	}
	return "", false
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
