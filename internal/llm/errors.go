package llm

import "fmt"

// ErrorType classifies a capability failure.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRequest
	ErrorTypeAPI
	ErrorTypeResponse
	ErrorTypeRateLimit
)

// Error represents a failure of the text-completion capability. The core
// never retries these; they abort the current unit of work and propagate.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) TypeString() string {
	switch e.Type {
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	default:
		return "UnknownError"
	}
}

// NewError creates a new capability Error.
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{Type: errType, Message: message, Err: err}
}
