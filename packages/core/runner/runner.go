package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
	"github.com/abdul-hamid-achik/hitdesk/packages/http"
)

// ErrIndexOutOfRange is returned when a request index is not in the file.
var ErrIndexOutOfRange = errors.New("request index out of bounds")

type Runner struct {
	client  *http.Client
	config  *Config
	limiter *rate.Limiter
}

type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
	// MaxRedirects caps followed redirects; zero keeps the client default.
	MaxRedirects int
	ValidateSSL  bool
	Proxy        string
	// RateLimit caps requests per second within a run; zero means unpaced.
	RateLimit float64
	WarnFunc  env.WarnFunc
}

// DefaultConfig returns the settings used when no config is supplied.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        http.DefaultTimeout,
		FollowRedirect: true,
		ValidateSSL:    true,
	}
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(cfg.ValidateSSL),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}

	r := &Runner{
		client: http.NewClient(clientOpts...),
		config: cfg,
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// RequestResult is the outcome of executing one request. Error is set when
// no response could be obtained; assertion failures only clear Passed.
// Skipped requests were never sent.
type RequestResult struct {
	Index      int
	Name       string
	Method     string
	URL        string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Response   *http.Response
	Assertions []*AssertionResult
	Error      error
}

// RunFile parses path and executes every request in file order under the
// named environment. Request variables of earlier requests are available to
// later ones. Requests whose @dependsOn or @if conditions are not met are
// reported as skipped.
func (r *Runner) RunFile(ctx context.Context, path, environment string) ([]*RequestResult, error) {
	file, resolver, err := r.prepare(path, environment)
	if err != nil {
		return nil, err
	}

	results := make([]*RequestResult, 0, len(file.Requests))
	done := make(map[string]*RequestResult, len(file.Requests))
	for i, req := range file.Requests {
		var result *RequestResult
		if reason := skipReason(req, resolver, done); reason != "" {
			result = newResult(i, req)
			result.Skipped = true
			result.SkipReason = reason
		} else {
			result = r.execute(ctx, resolver, i, req)
		}
		done[contextName(req, i)] = result
		results = append(results, result)
	}
	return results, nil
}

// RunRequest parses path and executes only the request at index. Its
// @dependsOn and @if directives are ignored since no earlier request ran.
func (r *Runner) RunRequest(ctx context.Context, path string, index int, environment string) (*RequestResult, error) {
	file, resolver, err := r.prepare(path, environment)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(file.Requests) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(file.Requests))
	}
	return r.execute(ctx, resolver, index, file.Requests[index]), nil
}

func (r *Runner) prepare(path, environment string) (*parser.File, *env.Resolver, error) {
	file, err := parser.ParseFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing file: %w", err)
	}

	resolver := env.NewResolver()
	if r.config.WarnFunc != nil {
		resolver.SetWarnFunc(r.config.WarnFunc)
	}

	environmentVars, err := env.LoadEnvironment(path, environment)
	if err != nil {
		return nil, nil, fmt.Errorf("loading environment: %w", err)
	}
	if environment != "" && !environmentVars.Defined {
		r.warn("environment %q is not defined for %s, using shared variables", environment, path)
	}
	resolver.SetEnvironment(environmentVars.Variables)

	dotenv, err := env.LoadDotEnvFor(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dotenv: %w", err)
	}
	resolver.SetDotEnv(dotenv)

	for _, v := range file.Variables {
		resolver.SetVariable(v.Name, v.Value)
	}

	return file, resolver, nil
}

func (r *Runner) warn(format string, args ...any) {
	if r.config.WarnFunc != nil {
		r.config.WarnFunc(format, args...)
	}
}

func newResult(index int, req *parser.Request) *RequestResult {
	return &RequestResult{
		Index:  index,
		Name:   req.Name,
		Method: req.Method,
		URL:    req.URL,
	}
}

func (r *Runner) execute(ctx context.Context, resolver *env.Resolver, index int, req *parser.Request) *RequestResult {
	result := newResult(index, req)

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Error = err
			return result
		}
	}

	httpReq := http.BuildRequest(req, resolver.Resolve)
	resp, err := r.client.Do(ctx, httpReq)
	if err != nil {
		result.Error = err
		return result
	}
	result.Response = resp

	resolver.SetResponse(contextName(req, index), &env.Response{
		Status:  resp.StatusCode,
		Headers: resp.Headers,
		Body:    resp.BodyString(),
	})

	if len(req.Assertions) == 0 {
		result.Passed = resp.IsSuccess()
		return result
	}

	result.Passed = true
	for _, a := range req.Assertions {
		ar := evaluate(a, resolver.Resolve(a.Expected), resp)
		result.Assertions = append(result.Assertions, ar)
		if !ar.Passed {
			result.Passed = false
		}
	}
	return result
}
