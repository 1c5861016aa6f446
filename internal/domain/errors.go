package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// UnknownBankError means the bank id is not in the registry. It is raised
// before any network call happens.
type UnknownBankError struct {
	Bank string
}

func (e UnknownBankError) Error() string {
	return fmt.Sprintf("unknown bank: %s", e.Bank)
}

// Is enables errors.Is matching on UnknownBankError.
func (e UnknownBankError) Is(target error) bool {
	_, ok := target.(UnknownBankError)
	if ok {
		return true
	}
	_, ok = target.(*UnknownBankError)
	return ok
}

// ErrUnknownBank is the sentinel error for unregistered banks.
var ErrUnknownBank = UnknownBankError{}

// BankAuthError means the client-credentials exchange with a partner failed.
type BankAuthError struct {
	Bank   string
	Detail string
	Err    error
}

func (e BankAuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("failed to get token for %s: %s", e.Bank, e.Detail)
	}
	return fmt.Sprintf("failed to get token for %s", e.Bank)
}

func (e BankAuthError) Unwrap() error { return e.Err }

func (e BankAuthError) Is(target error) bool {
	_, ok := target.(BankAuthError)
	if ok {
		return true
	}
	_, ok = target.(*BankAuthError)
	return ok
}

var ErrBankAuth = BankAuthError{}

// PartnerError is any non-2xx partner response, normalized. StatusCode and
// Message come from the partner whenever it gave them; Data carries the raw
// partner body so callers can relay it unmodified.
type PartnerError struct {
	StatusCode int
	Message    string
	Data       json.RawMessage
}

func (e PartnerError) Error() string {
	return fmt.Sprintf("partner request failed: %d %s", e.StatusCode, e.Message)
}

func (e PartnerError) Is(target error) bool {
	_, ok := target.(PartnerError)
	if ok {
		return true
	}
	_, ok = target.(*PartnerError)
	return ok
}

var ErrPartner = PartnerError{}

// ValidationError reports structurally invalid input, rejected locally
// before any outbound call.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid request: " + strings.Join(names, ", ")
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}
