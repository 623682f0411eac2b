package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/go-playground/validator.v9"

	"ENSWatch/ens"
)

const (
	MethodAddOrRemoveENSDomain  = "addOrRemoveENSDomain"
	MethodCheckExpirationDate   = "checkExpirationDate"
	MethodUpdateExpirationDates = "updateExpirationDates"
)

var ErrInvalidParams = errors.New("invalid params")

// MethodNotFoundError is returned for a method name no entry point knows.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Request is one of AddOrRemoveENSDomain, CheckExpirationDate or UpdateExpirationDates.
type Request interface {
	Method() string
}

// AddOrRemoveENSDomain toggles a name on the watchlist.
type AddOrRemoveENSDomain struct {
	// ENSDomain is the label; after parsing it is normalised and has no ".eth".
	ENSDomain string `json:"ensDomain" validate:"required"`
}

func (AddOrRemoveENSDomain) Method() string { return MethodAddOrRemoveENSDomain }

// Validate checks the validity of the AddOrRemoveENSDomain request.
func (r *AddOrRemoveENSDomain) Validate() error {
	return validator.New().Struct(r)
}

// CheckExpirationDate notifies about names expiring within the notification window.
type CheckExpirationDate struct{}

func (CheckExpirationDate) Method() string { return MethodCheckExpirationDate }

// UpdateExpirationDates refreshes stored expiries that changed on chain.
type UpdateExpirationDates struct{}

func (UpdateExpirationDates) Method() string { return MethodUpdateExpirationDates }

// ParseRPCRequest decodes a user-facing call. Only addOrRemoveENSDomain is accepted.
func ParseRPCRequest(method string, params json.RawMessage) (Request, error) {
	switch method {
	case MethodAddOrRemoveENSDomain:
		var req AddOrRemoveENSDomain
		if len(params) == 0 {
			return nil, fmt.Errorf("%w: ensDomain is required", ErrInvalidParams)
		}
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		label, err := ens.NormalizeLabel(req.ENSDomain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		req.ENSDomain = label
		return req, nil
	default:
		return nil, &MethodNotFoundError{Method: method}
	}
}

// ParseCronRequest decodes a periodic trigger.
func ParseCronRequest(method string) (Request, error) {
	switch method {
	case MethodCheckExpirationDate:
		return CheckExpirationDate{}, nil
	case MethodUpdateExpirationDates:
		return UpdateExpirationDates{}, nil
	default:
		return nil, &MethodNotFoundError{Method: method}
	}
}
