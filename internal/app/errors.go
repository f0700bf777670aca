package app

import "fmt"

// DomainError is the error the service layer hands to the HTTP boundary.
// Code is one of Shelfmark's stable error codes — VALIDATION_ERROR,
// NOT_FOUND, FORBIDDEN, UNAUTHORIZED, SERVER_ERROR — and Status is the
// HTTP status it maps to. Details optionally carries field-level
// information for validation failures.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
