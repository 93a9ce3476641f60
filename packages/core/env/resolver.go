package env

import (
	"fmt"
	"math/rand/v2"
	"net/textproto"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Response is what a named request exposes to later requests of the same run.
type Response struct {
	Status  int
	Headers map[string][]string
	Body    string
}

// Resolver handles variable resolution with thread-safe access to variables and
// responses of earlier requests. Precedence is dynamic variables, request
// variables, file variables, then environment variables.
type Resolver struct {
	mu        sync.RWMutex
	fileVars  map[string]string
	envVars   map[string]string
	dotenv    map[string]string
	responses map[string]*Response
	warnFunc  WarnFunc
	now       func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{
		fileVars:  make(map[string]string),
		envVars:   make(map[string]string),
		dotenv:    make(map[string]string),
		responses: make(map[string]*Response),
		now:       time.Now,
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// SetEnvironment replaces the selected environment's variables.
func (r *Resolver) SetEnvironment(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envVars = copyMap(vars)
}

// SetDotEnv replaces the values available to {{$dotenv NAME}}.
func (r *Resolver) SetDotEnv(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dotenv = copyMap(vars)
}

// SetVariable defines a file variable. File variable values may themselves
// reference other variables; they are resolved when declared.
func (r *Resolver) SetVariable(name, value string) {
	resolved := r.Resolve(value)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileVars[name] = resolved
}

// SetResponse records the response of the request called name.
func (r *Resolver) SetResponse(name string, resp *Response) {
	if name == "" || resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[name] = resp
}

// Resolve substitutes every {{...}} reference in input. Unresolvable
// references are left in place and reported through the warn func.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if strings.HasPrefix(expr, "$") {
			if val, ok := r.dynamic(expr); ok {
				return val
			}
			r.warn("unresolved dynamic variable: %s", expr)
			return match
		}

		if val, ok, handled := r.requestVariable(expr); handled {
			if ok {
				return val
			}
			r.warn("unresolved request variable: %s", expr)
			return match
		}

		if val, ok := r.lookup(expr); ok {
			return val
		}

		r.warn("unresolved variable: %s", expr)
		return match
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// HasUnresolved reports whether input still contains {{...}} references
// after resolution.
func (r *Resolver) HasUnresolved(input string) bool {
	return variablePattern.MatchString(input)
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

func (r *Resolver) lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.fileVars[name]; ok {
		return v, true
	}
	if v, ok := r.envVars[name]; ok {
		return v, true
	}
	return "", false
}

func (r *Resolver) dynamic(expr string) (string, bool) {
	fields := strings.Fields(expr)
	name, args := fields[0], fields[1:]

	switch name {
	case "$uuid", "$random.uuid":
		return uuid.NewString(), true
	case "$timestamp":
		return strconv.FormatInt(r.now().Unix(), 10), true
	case "$isoTimestamp":
		return r.now().UTC().Format(time.RFC3339), true
	case "$randomInt", "$random.integer":
		lo, hi := 0, 1000
		if len(args) == 2 {
			a, errA := strconv.Atoi(args[0])
			b, errB := strconv.Atoi(args[1])
			if errA != nil || errB != nil || b <= a {
				return "", false
			}
			lo, hi = a, b
		}
		return strconv.Itoa(lo + rand.IntN(hi-lo)), true
	case "$env", "$processEnv":
		if len(args) != 1 {
			return "", false
		}
		return os.LookupEnv(args[0])
	case "$dotenv":
		if len(args) != 1 {
			return "", false
		}
		r.mu.RLock()
		defer r.mu.RUnlock()
		v, ok := r.dotenv[args[0]]
		return v, ok
	}
	return "", false
}

// ResponseValue looks up a request variable such as
// "login.response.status" or "login.response.body.$.token" without
// substituting it into a template.
func (r *Resolver) ResponseValue(expr string) (string, bool) {
	value, ok, _ := r.requestVariable(expr)
	return value, ok
}

// requestVariable resolves name.response.body.<path> and
// name.response.headers.<Header>. handled is false when expr does not have
// that shape or names no recorded response.
func (r *Resolver) requestVariable(expr string) (value string, ok, handled bool) {
	name, rest, found := strings.Cut(expr, ".response.")
	if !found {
		return "", false, false
	}
	r.mu.RLock()
	resp, known := r.responses[name]
	r.mu.RUnlock()
	if !known {
		return "", false, false
	}

	switch {
	case rest == "body" || rest == "body.$" || rest == "body.*":
		return resp.Body, true, true
	case strings.HasPrefix(rest, "body."):
		path := strings.TrimPrefix(strings.TrimPrefix(rest, "body."), "$.")
		res := gjson.Get(resp.Body, path)
		if !res.Exists() {
			return "", false, true
		}
		return res.String(), true, true
	case strings.HasPrefix(rest, "headers."):
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimPrefix(rest, "headers."))
		for k, values := range resp.Headers {
			if textproto.CanonicalMIMEHeaderKey(k) == key && len(values) > 0 {
				return values[0], true, true
			}
		}
		return "", false, true
	case rest == "status":
		return fmt.Sprint(resp.Status), true, true
	}
	return "", false, true
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
