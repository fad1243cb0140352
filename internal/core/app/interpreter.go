package app

import (
	"context"
	"log/slog"
	"maps"
	"regexp"
	"strings"
	"sync"
	"time"

	"calcscript/internal/core/errors"
	"calcscript/internal/core/ports"
	"calcscript/internal/data/history"
	"calcscript/internal/engine/ast"
	"calcscript/internal/engine/eval"
	"calcscript/internal/engine/parser"
	"calcscript/internal/engine/scanner"
	"calcscript/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	Result  = ports.RunResult
	Outcome = ports.Outcome
)

// assignmentPattern is anchored so "1 + x = 2" is an expression, not an
// assignment to x.
var assignmentPattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)

// Interpreter runs scripts statement by statement against a single symbol
// environment. Runs are serialized; each one starts from an empty
// environment.
type Interpreter struct {
	mu       sync.Mutex
	env      *eval.Environment
	maxDepth int
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder *Recorder
}

var _ ports.ScriptService = (*Interpreter)(nil)

type Option func(*Interpreter)

func WithMaxDepth(depth int) Option {
	return func(in *Interpreter) {
		if depth > 0 {
			in.maxDepth = depth
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		if logger != nil {
			in.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(in *Interpreter) {
		if tracer != nil {
			in.tracer = tracer
		}
	}
}

// WithRecorder sends an audit record of every run to rec.
func WithRecorder(rec *Recorder) Option {
	return func(in *Interpreter) {
		in.recorder = rec
	}
}

func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{
		env:      eval.NewEnvironment(),
		maxDepth: parser.DefaultMaxDepth,
		logger:   slog.Default(),
		tracer:   observability.Tracer,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// SetMaxDepth changes the nesting limit for subsequent runs.
func (in *Interpreter) SetMaxDepth(depth int) {
	if depth <= 0 {
		return
	}
	in.mu.Lock()
	in.maxDepth = depth
	in.mu.Unlock()
}

func (in *Interpreter) MaxDepth() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.maxDepth
}

// Run executes script with no source label.
func (in *Interpreter) Run(ctx context.Context, script string) (*Result, error) {
	return in.Execute(ctx, ports.RunRequest{Script: script})
}

// Execute resets the environment and runs each statement of req.Script in
// order. The first fault stops the run; assignments made before it stay in
// the result. The returned Result is never nil and its Err equals the
// returned error.
func (in *Interpreter) Execute(ctx context.Context, req ports.RunRequest) (*Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	started := time.Now()
	res := &Result{RunID: uuid.NewString()}

	ctx, span := in.tracer.Start(ctx, "Interpreter.Run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("run.source", req.Source),
	))
	defer span.End()

	in.env.Reset()
	statements := SplitStatements(req.Script)
	span.SetAttributes(attribute.Int("run.statements", len(statements)))

	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		outcome, err := in.execStatement(ctx, i+1, stmt)
		if err != nil {
			err = errors.AddContext(err, errors.CtxStatement, i+1)
			err = errors.AddContext(err, errors.CtxText, stmt)
			res.Err = err
			break
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}

	res.Variables = in.env.Snapshot()
	res.Names = in.env.Names()
	res.Duration = time.Since(started)

	status := history.StatusOK
	if res.Err != nil {
		status = history.StatusError
		code := string(errors.CodeOf(res.Err))
		observability.ErrorsTotal.WithLabelValues(code).Inc()
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, errors.Message(res.Err))
		in.logger.Debug("run stopped", "run_id", res.RunID, "error", res.Err)
	}
	observability.RunsTotal.WithLabelValues(status).Inc()
	observability.VariablesAssigned.Set(float64(len(res.Names)))

	if in.recorder != nil {
		in.recorder.Record(in.auditRecord(req, res, len(statements), status))
	}
	return res, res.Err
}

func (in *Interpreter) auditRecord(req ports.RunRequest, res *Result, statements int, status string) history.Run {
	run := history.Run{
		ID:         res.RunID,
		Timestamp:  time.Now().UTC(),
		Source:     req.Source,
		Script:     req.Script,
		Status:     status,
		Statements: statements,
		Variables:  maps.Clone(res.Variables),
		Duration:   res.Duration,
	}
	if res.Err != nil {
		run.ErrorCode = string(errors.CodeOf(res.Err))
		run.ErrorMessage = errors.Message(res.Err)
	}
	return run
}

func (in *Interpreter) execStatement(ctx context.Context, index int, stmt string) (Outcome, error) {
	observability.StatementsTotal.Inc()
	outcome := Outcome{Index: index, Statement: stmt}

	expr := stmt
	if m := assignmentPattern.FindStringSubmatch(stmt); m != nil {
		outcome.Assignment = true
		outcome.Name = m[1]
		expr = m[2]
	}

	tokens := in.scan(ctx, expr)
	node, err := in.parse(ctx, tokens)
	if err != nil {
		return outcome, err
	}
	value, err := in.evaluate(ctx, node)
	if err != nil {
		return outcome, err
	}

	outcome.Value = value
	if outcome.Assignment {
		in.env.Set(outcome.Name, value)
		in.logger.Debug("assigned", "name", outcome.Name, "value", value)
	}
	return outcome, nil
}

func (in *Interpreter) scan(ctx context.Context, source string) []scanner.Token {
	_, span := in.tracer.Start(ctx, "scan")
	defer span.End()
	defer observeStage("scan", time.Now())

	tokens := scanner.Tokenize(source, scanner.WithLogger(in.logger))
	for _, tok := range tokens {
		observability.TokensTotal.WithLabelValues(tok.Kind.String()).Inc()
	}
	span.SetAttributes(attribute.Int("tokens", len(tokens)))
	return tokens
}

func (in *Interpreter) parse(ctx context.Context, tokens []scanner.Token) (ast.Node, error) {
	_, span := in.tracer.Start(ctx, "parse")
	defer span.End()
	defer observeStage("parse", time.Now())

	node, err := parser.New(tokens, parser.WithMaxDepth(in.maxDepth)).Parse()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return node, err
}

func (in *Interpreter) evaluate(ctx context.Context, node ast.Node) (float64, error) {
	_, span := in.tracer.Start(ctx, "evaluate")
	defer span.End()
	defer observeStage("evaluate", time.Now())

	value, err := eval.Evaluate(node, in.env)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}

func observeStage(stage string, started time.Time) {
	observability.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// Tokenize lists the tokens of source without running it. The EndOfInput
// marker is not included.
func (in *Interpreter) Tokenize(ctx context.Context, source string) []scanner.Token {
	return in.scan(ctx, strings.ReplaceAll(source, "\r", ""))
}

// SplitStatements breaks a script on ';' and line breaks, dropping carriage
// returns, surrounding whitespace and empty statements.
func SplitStatements(script string) []string {
	script = strings.ReplaceAll(script, "\r", "")
	parts := strings.FieldsFunc(script, func(r rune) bool {
		return r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RunRequestFor labels script with the place it came from.
func RunRequestFor(source, script string) ports.RunRequest {
	return ports.RunRequest{Source: source, Script: script}
}
