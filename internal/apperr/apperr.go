package apperr

import (
	"errors"
	"fmt"
)

// Виды ошибок рабочего процесса. Проверяются через errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("authorization error")
	ErrConflict      = errors.New("state conflict")
	ErrDependency    = errors.New("dependency error")
)

// Error - структурированная ошибка операции: вид + сообщение для клиента.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindName возвращает имя вида для сериализации в ответ.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrAuthorization):
		return "AuthorizationError"
	case errors.Is(err, ErrConflict):
		return "StateConflictError"
	case errors.Is(err, ErrDependency):
		return "DependencyError"
	default:
		return "InternalError"
	}
}
