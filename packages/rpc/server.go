package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Server exposes a backend.Service to websocket clients.
type Server struct {
	svc      backend.Service
	upgrader websocket.Upgrader
	warn     WarnFunc
}

type ServerOption func(*Server)

func WithServerWarnFunc(fn WarnFunc) ServerOption {
	return func(s *Server) {
		s.warn = fn
	}
}

// WithCheckOrigin overrides the upgrader's origin check. By default only
// same-origin and non-browser clients are accepted.
func WithCheckOrigin(fn func(*http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

func NewServer(svc backend.Service, opts ...ServerOption) *Server {
	s := &Server{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		warn: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	out := make(chan *Response, 32)
	writerDone := make(chan struct{})
	go s.writeLoop(ctx, conn, out, writerDone)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.warn("websocket read: %v", err)
			}
			cancel()
			<-writerDone
			return
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			resp := s.handle(ctx, &req)
			select {
			case out <- resp:
			case <-ctx.Done():
			}
		}()
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan *Response, done chan<- struct{}) {
	defer close(done)
	// Closing unblocks the read loop when writing fails first.
	defer conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(resp); err != nil {
				s.warn("websocket write: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, req *Request) *Response {
	result, err := s.dispatch(ctx, req)
	resp := &Response{ID: req.ID}
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			resp.Error = rpcErr
		} else {
			resp.Error = toError(err)
		}
		return resp
	}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = &Error{Code: CodeInternal, Message: fmt.Sprintf("encoding result: %v", err)}
		return resp
	}
	resp.Result = data
	return resp
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return v, nil
}

func (s *Server) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Op {
	case OpGetRootDirectory:
		return s.svc.GetRootDirectory(ctx)
	case OpSetRootDirectory:
		p, err := decode[pathParams](req.Params)
		if err != nil {
			return nil, err
		}
		return nil, s.svc.SetRootDirectory(ctx, p.Path)
	case OpListFiles:
		files, err := s.svc.ListFiles(ctx)
		if files == nil {
			files = []backend.FileEntry{}
		}
		return files, err
	case OpReadFile:
		p, err := decode[pathParams](req.Params)
		if err != nil {
			return nil, err
		}
		return s.svc.ReadFile(ctx, p.Path)
	case OpWriteFile:
		p, err := decode[writeParams](req.Params)
		if err != nil {
			return nil, err
		}
		return nil, s.svc.WriteFile(ctx, p.Path, p.Content)
	case OpParseFile:
		p, err := decode[pathParams](req.Params)
		if err != nil {
			return nil, err
		}
		defs, err := s.svc.ParseFile(ctx, p.Path)
		if defs == nil {
			defs = []backend.RequestDefinition{}
		}
		return defs, err
	case OpListEnvironments:
		p, err := decode[pathParams](req.Params)
		if err != nil {
			return nil, err
		}
		names, err := s.svc.ListEnvironments(ctx, p.Path)
		if names == nil {
			names = []string{}
		}
		return names, err
	case OpGetEnvironment:
		return s.svc.GetEnvironment(ctx)
	case OpSetEnvironment:
		p, err := decode[nameParams](req.Params)
		if err != nil {
			return nil, err
		}
		return nil, s.svc.SetEnvironment(ctx, p.Name)
	case OpSelectFile:
		p, err := decode[pathParams](req.Params)
		if err != nil {
			return nil, err
		}
		return nil, s.svc.SelectFile(ctx, p.Path)
	case OpRunRequest:
		p, err := decode[runParams](req.Params)
		if err != nil {
			return nil, err
		}
		return s.svc.RunRequest(ctx, p.Path, p.Index, p.Environment)
	case OpRunAll:
		p, err := decode[runParams](req.Params)
		if err != nil {
			return nil, err
		}
		results, err := s.svc.RunAll(ctx, p.Path, p.Environment)
		if results == nil {
			results = []*backend.ExecutionResult{}
		}
		return results, err
	default:
		return nil, &Error{Code: CodeUnknownOp, Message: fmt.Sprintf("unknown op %q", req.Op)}
	}
}
