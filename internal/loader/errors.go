package loader

import "fmt"

// StatusError is returned when the resource answers with anything other
// than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("configuration request to %s returned %s", e.URL, e.Status)
}

// DecodeError is returned when the response body is not a JSON document.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("configuration from %s is not valid JSON: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
