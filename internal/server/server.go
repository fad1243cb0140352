// Package server exposes the interpreter over HTTP. Requests under /api are
// checked against the embedded OpenAPI document before they reach a handler.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calcscript/internal/core/app"
	"calcscript/internal/core/errors"
	"calcscript/internal/core/ports"
	"calcscript/internal/engine/scanner"
	"calcscript/internal/shared/observability"
	"calcscript/internal/shared/util"

	"github.com/getkin/kin-openapi/routers"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultMaxBody    = 64 << 10
	requestIDHeader   = "X-Request-ID"
	readHeaderTimeout = 5 * time.Second
)

type Options struct {
	Address     string
	RateLimit   float64
	Burst       int
	LimiterTTL  time.Duration
	MaxBodySize int64
	Metrics     bool
}

type Server struct {
	opts     Options
	service  ports.ScriptService
	health   *app.HealthService
	contract *contract
	limiters *util.LimiterRegistry
	logger   *slog.Logger
	server   *http.Server
}

func New(opts Options, service ports.ScriptService, health *app.HealthService) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("script service is required")
	}
	c, err := loadContract()
	if err != nil {
		return nil, err
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBody
	}
	return &Server{
		opts:     opts,
		service:  service,
		health:   health,
		contract: c,
		limiters: util.NewLimiterRegistry(opts.RateLimit, opts.Burst, opts.LimiterTTL),
		logger:   slog.Default(),
	}, nil
}

// Handler returns the full route table wrapped in request-id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	api := s.rateLimited(s.validated)
	mux.Handle("/api/", api)

	mux.HandleFunc("/health", s.handleHealth)
	if s.opts.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return withRequestID(mux)
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Address, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("api server starting", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.limiters.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) rateLimited(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := s.limiters.Get(clientKey(r))
		if !limiter.Allow(1) {
			retry := int(math.Ceil(limiter.RetryAfter().Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeError(w, r, "rate_limited", http.StatusTooManyRequests,
				errors.New(errors.CodeRateLimited, "too many requests"))
			return
		}
		next(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// validated buffers the body, checks the request against the API document
// and dispatches on the matched operation.
func (s *Server) validated(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize))
	if err != nil {
		s.writeError(w, r, "api", http.StatusRequestEntityTooLarge,
			errors.Newf(errors.CodeValidationError, "request body exceeds %d bytes", s.opts.MaxBodySize))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	route, err := s.contract.validate(r)
	if err != nil {
		var routeErr *routers.RouteError
		switch {
		case stderrors.As(err, &routeErr) && routeErr.Reason == routers.ErrMethodNotAllowed.Error():
			s.writeError(w, r, "api", http.StatusMethodNotAllowed, errors.New(errors.CodeValidationError, "method not allowed"))
		case route == nil:
			s.writeError(w, r, "api", http.StatusNotFound, errors.New(errors.CodeNotFound, "no such endpoint"))
		default:
			s.writeError(w, r, route.Operation.OperationID, http.StatusBadRequest, errors.Wrap(err, errors.CodeValidationError, "invalid request"))
		}
		return
	}

	switch route.Operation.OperationID {
	case "tokenize":
		s.handleTokenize(w, r, body)
	case "run":
		s.handleRun(w, r, body)
	default:
		s.writeError(w, r, "api", http.StatusNotFound, errors.New(errors.CodeNotFound, "no such endpoint"))
	}
}

type tokenizeRequest struct {
	Source string `json:"source"`
}

type tokenJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	Line int    `json:"line"`
}

type tokenizeResponse struct {
	Tokens  []tokenJSON `json:"tokens"`
	Unknown int         `json:"unknown"`
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request, body []byte) {
	var req tokenizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, "tokenize", http.StatusBadRequest, errors.Wrap(err, errors.CodeValidationError, "malformed JSON"))
		return
	}

	tokens := s.service.Tokenize(r.Context(), req.Source)
	resp := tokenizeResponse{Tokens: make([]tokenJSON, 0, len(tokens))}
	for _, tok := range tokens {
		if tok.Kind == scanner.KindUnknown {
			resp.Unknown++
		}
		resp.Tokens = append(resp.Tokens, tokenJSON{Kind: tok.Kind.String(), Text: tok.Text, Line: tok.Line})
	}
	s.writeJSON(w, "tokenize", http.StatusOK, resp)
}

type runRequest struct {
	Script string `json:"script"`
	Source string `json:"source"`
}

// number encodes non-finite values as strings since JSON has no Inf or NaN.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

type variableJSON struct {
	Name  string `json:"name"`
	Value number `json:"value"`
}

type faultJSON struct {
	Code      string `json:"code"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
	Statement int    `json:"statement,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type runResponse struct {
	RunID      string         `json:"run_id"`
	OK         bool           `json:"ok"`
	Variables  []variableJSON `json:"variables"`
	Statements int            `json:"statements"`
	Error      *faultJSON     `json:"error,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, body []byte) {
	var req runRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, "run", http.StatusBadRequest, errors.Wrap(err, errors.CodeValidationError, "malformed JSON"))
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	res, err := s.service.Execute(r.Context(), ports.RunRequest{Source: source, Script: req.Script})
	resp := runResponse{
		RunID:      res.RunID,
		OK:         err == nil,
		Variables:  make([]variableJSON, 0, len(res.Names)),
		Statements: len(res.Outcomes),
	}
	for _, name := range res.Names {
		resp.Variables = append(resp.Variables, variableJSON{Name: name, Value: number(res.Variables[name])})
	}
	if err != nil {
		resp.Error = fault(err)
	}
	s.writeJSON(w, "run", http.StatusOK, resp)
}

func fault(err error) *faultJSON {
	f := &faultJSON{
		Code:    string(errors.CodeOf(err)),
		Message: errors.Message(err),
	}
	if kind := errors.KindOf(err); kind != errors.KindNone {
		f.Kind = kind.String()
	}
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		if n, ok := de.Context[errors.CtxStatement].(int); ok {
			f.Statement = n
		}
		if n, ok := de.Context[errors.CtxLine].(int); ok {
			f.Line = n
		}
	}
	return f
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.writeJSON(w, "health", http.StatusOK, map[string]string{"status": "up"})
		return
	}
	status := s.health.Check(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, "health", code, status)
}

type errorResponse struct {
	RequestID string     `json:"request_id,omitempty"`
	Error     *faultJSON `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, route string, status int, err error) {
	s.logger.Debug("api request rejected", "route", route, "status", status, "request_id", requestID(r.Context()), "error", err)
	f := fault(err)
	var de *errors.DomainError
	if stderrors.As(err, &de) {
		f.Message = de.Message
		// Schema validation errors run to several lines; the first names the field.
		if de.Err != nil {
			f.Message += ": " + firstLine(de.Err.Error())
		}
	}
	s.writeJSON(w, route, status, errorResponse{RequestID: requestID(r.Context()), Error: f})
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, status int, v any) {
	observability.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "route", route, "error", err)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
