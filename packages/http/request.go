package http

import (
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
)

// Header is a single request header. Order and duplicates are preserved.
type Header struct {
	Key   string
	Value string
}

type Request struct {
	Method  string
	URL     string
	Headers []Header
	Body    string

	Timeout        time.Duration
	ConnectTimeout time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{Method: method, URL: requestURL}
}

func (r *Request) AddHeader(key, value string) *Request {
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// Header returns the first value of key, compared case-insensitively.
func (r *Request) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// BuildRequest converts a parsed request into an executable one, passing
// the URL, header values and body through resolve.
func BuildRequest(req *parser.Request, resolve func(string) string) *Request {
	r := NewRequest(req.Method, strings.TrimSpace(resolve(req.URL)))
	r.Timeout = req.Timeout
	r.ConnectTimeout = req.ConnectionTimeout
	for _, h := range req.Headers {
		r.AddHeader(h.Key, resolve(h.Value))
	}
	if req.Body != "" {
		r.SetBody(resolve(req.Body))
		if r.Header("Content-Type") == "" && looksLikeJSON(r.Body) {
			r.AddHeader("Content-Type", "application/json")
		}
	}
	return r
}

func looksLikeJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
