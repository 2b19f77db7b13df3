package httpapi

// Result is the envelope of every console API response. The browser reads
// code first; message is shown to the user on failures.
type Result[T any] struct {
	Code    int        `json:"code"`
	Type    ResultType `json:"type"`
	Message string     `json:"message"`
	Result  T          `json:"result"`
}

type ResultType string

const (
	TypeSuccess ResultType = "success"
	TypeError   ResultType = "error"
)

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired goes with HTTP 401; the browser sends the user back to login.
	ResultTokenExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: TypeSuccess, Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return FailWith[any](ResultError, message, nil)
}

// FailWith is a failure that still carries a payload, e.g. the empty-state
// screen after a failed load.
func FailWith[T any](code int, message string, result T) Result[T] {
	return Result[T]{Code: code, Type: TypeError, Message: message, Result: result}
}
