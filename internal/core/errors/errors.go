package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeLexical           ErrorCode = "LEXICAL_ERROR"
	CodeSyntax            ErrorCode = "SYNTAX_ERROR"
	CodeUndefinedVariable ErrorCode = "UNDEFINED_VARIABLE"
	CodeDivisionByZero    ErrorCode = "DIVISION_BY_ZERO"
	CodeUnknownOperator   ErrorCode = "UNKNOWN_OPERATOR"

	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
)

// Kind groups codes into the three user-facing fault families.
type Kind int

const (
	KindNone Kind = iota
	KindLexical
	KindSyntax
	KindSemantic
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "LexicalError"
	case KindSyntax:
		return "SyntaxError"
	case KindSemantic:
		return "SemanticError"
	default:
		return "Error"
	}
}

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxLine      = "line"
	CtxToken     = "token"
	CtxStatement = "statement"
	CtxVariable  = "variable"
	CtxOperation = "operation"
	CtxPath      = "path"
	CtxText      = "text"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += " " + formatContext(e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Kind reports which fault family the error code belongs to.
func (e *DomainError) Kind() Kind {
	return kindForCode(e.Code)
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key to the first DomainError in err's chain, or wraps
// err as an internal error when the chain has none.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	if err == nil {
		return ""
	}
	return CodeInternal
}

func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	return kindForCode(CodeOf(err))
}

// Message renders err as the short text shown to users: the fault family
// followed by the message, without the bracketed code or context map.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if !errors.As(err, &de) {
		return err.Error()
	}
	var where []string
	if stmt, ok := de.Context[CtxStatement]; ok {
		where = append(where, fmt.Sprintf("statement %v", stmt))
	}
	if line, ok := de.Context[CtxLine]; ok {
		where = append(where, fmt.Sprintf("line %v", line))
	}
	msg := de.Message
	if len(where) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(where, ", "))
	}
	return fmt.Sprintf("%s: %s", de.Kind(), msg)
}

func kindForCode(code ErrorCode) Kind {
	switch code {
	case CodeLexical:
		return KindLexical
	case CodeSyntax:
		return KindSyntax
	case CodeUndefinedVariable, CodeDivisionByZero, CodeUnknownOperator:
		return KindSemantic
	default:
		return KindNone
	}
}

func formatContext(ctx map[string]interface{}) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
