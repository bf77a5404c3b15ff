package app

import "fmt"

// DomainError carries an HTTP status and a stable machine-readable code for
// portal failures: EMAIL_TAKEN, ALREADY_SUBMITTED, NOT_STAGED and the rest.
// mapError turns it into the {code, error, details} response envelope;
// Details holds structured context such as the failing field on a blocked
// submission.
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
