package saga

// Status classifies the outcome of one task execution. The set is closed by
// convention; domain variants are permitted as long as subscriptions use the
// same spelling.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is the outcome of one task execution: a status plus an optional
// payload forwarded to dependent actions. The result store keeps at most the
// latest Result per full action name.
type Result struct {
	Status Status
	Data   any
}

// NewResult builds a result with an explicit status.
func NewResult(status Status, data any) *Result {
	return &Result{Status: status, Data: data}
}

// Success builds a success result carrying an optional payload.
func Success(data any) *Result {
	return NewResult(StatusSuccess, data)
}

// Failure builds a failure result. Returning a failure result is a
// legitimate outcome and cascades to failure subscribers; returning an error
// from a handler aborts the run instead.
func Failure(data any) *Result {
	return NewResult(StatusFailure, data)
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
