package station

import "fmt"

const (
	ReasonNotArray       = "Stations response is not an array."
	ReasonInvalidEntries = "Stations response has invalid entries."
	ReasonMalformedJSON  = "Stations response is not valid JSON."
)

// TransportError is a failure to reach the station source at all
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Failed to load stations: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a network or SDK failure
func NewTransportError(err error) *TransportError {
	return &TransportError{Err: err}
}

// ResponseError is a non-success status from the station source
type ResponseError struct {
	StatusCode int
	Status     string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Failed to load stations: %d %s", e.StatusCode, e.Status)
}

func NewResponseError(statusCode int, status string) *ResponseError {
	return &ResponseError{
		StatusCode: statusCode,
		Status:     status,
	}
}

// ValidationError is a payload that does not have the station list shape
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}
