package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, []string{"a", "b"}, r.Header.Values("X-Tag"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL+"/users").
		AddHeader("X-Tag", "a").
		AddHeader("X-Tag", "b").
		SetBody(`{"name":"test"}`)

	resp, err := NewClient().Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.True(t, resp.IsJSON())
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Contains(t, resp.BodyString(), "123")
}

func TestClient_ErrorStatusIsAResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL))

	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Do(context.Background(), NewRequest("GET", server.URL))

	assert.Error(t, err)
}

func TestClient_RequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Run("shorter than the client timeout", func(t *testing.T) {
		client := NewClient(WithTimeout(5 * time.Second))
		req := NewRequest("GET", server.URL)
		req.Timeout = 50 * time.Millisecond

		_, err := client.Do(context.Background(), req)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("longer than the client timeout", func(t *testing.T) {
		client := NewClient(WithTimeout(50 * time.Millisecond))
		req := NewRequest("GET", server.URL)
		req.Timeout = 5 * time.Second

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestClient_ConnectTimeout(t *testing.T) {
	assert.Equal(t, DefaultConnectTimeout, NewClient().connectTimeout)
	assert.Equal(t, time.Second, NewClient(WithConnectTimeout(time.Second)).connectTimeout)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	req := NewRequest("GET", server.URL)
	req.ConnectTimeout = 2 * time.Second
	resp, err := NewClient(WithConnectTimeout(time.Nanosecond)).Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClient_WithDefaultHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hitdesk", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeader("User-Agent", "hitdesk"))
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("arrived"))
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL+"/old"))
	require.NoError(t, err)
	assert.Equal(t, "arrived", resp.BodyString())

	resp, err = NewClient(WithFollowRedirects(false)).Do(context.Background(), NewRequest("GET", server.URL+"/old"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestClient_MaxBodyBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	resp, err := NewClient(WithMaxBodyBytes(10)).Do(context.Background(), NewRequest("GET", server.URL))

	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://example.com", false},
		{"https with path", "https://example.com/a?b=c", false},
		{"ftp rejected", "ftp://example.com", true},
		{"missing host", "http://", true},
		{"unresolved variable", "{{host}}/users", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	vars := map[string]string{"{{host}}": "api.test", "{{token}}": "t1"}
	resolve := func(s string) string {
		for k, v := range vars {
			s = strings.ReplaceAll(s, k, v)
		}
		return s
	}

	req := BuildRequest(&parser.Request{
		Method:            "POST",
		URL:               "https://{{host}}/login",
		Headers:           []*parser.Header{{Key: "Authorization", Value: "Bearer {{token}}"}},
		Body:              `{"user": "a"}`,
		Timeout:           3 * time.Second,
		ConnectionTimeout: time.Second,
	}, resolve)

	assert.Equal(t, "https://api.test/login", req.URL)
	assert.Equal(t, "Bearer t1", req.Header("authorization"))
	assert.Equal(t, "application/json", req.Header("Content-Type"))
	assert.Equal(t, `{"user": "a"}`, req.Body)
	assert.Equal(t, 3*time.Second, req.Timeout)
	assert.Equal(t, time.Second, req.ConnectTimeout)
}
