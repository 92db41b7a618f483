package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeConfig     ErrorCode = "CONFIG_ERROR"
	CodeCatalog    ErrorCode = "CATALOG_ERROR"
	CodeGeneration ErrorCode = "GENERATION_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeExecution  ErrorCode = "EXECUTION_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeStorage    ErrorCode = "STORAGE_ERROR"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
)

const (
	CtxPath     = "path"
	CtxProvider = "provider"
	CtxModel    = "model"
	CtxExitCode = "exit_code"
	CtxStage    = "stage"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

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
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// IsCode reports whether any DomainError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
