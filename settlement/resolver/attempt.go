package resolver

import (
	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PaymentAttempt is one payment line awaiting settlement. It is owned by the caller; a
// reconciler only ever writes LocalState.
type PaymentAttempt struct {
	ID              string            `json:"attempt_id"`
	RemoteInvoiceID string            `json:"invoice_id" validate:"required"`
	MethodID        string            `json:"pm_id" validate:"required"`
	OrderID         string            `json:"order_id"`
	LocalState      consts.LocalState `json:"local_state"`
}

type LookupRequest struct {
	InvoiceID string `json:"invoice_id"`
	MethodID  string `json:"pm_id"`
	OrderID   string `json:"order_id"`
}

type StatusReport struct {
	Status string `json:"status"`
}

func (a PaymentAttempt) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].StructField() {
		case "RemoteInvoiceID":
			return errors.ErrMissingInvoiceID
		case "MethodID":
			return errors.ErrMissingMethodID
		}
	}
	return err
}

func (a PaymentAttempt) LookupRequest() LookupRequest {
	return LookupRequest{
		InvoiceID: a.RemoteInvoiceID,
		MethodID:  a.MethodID,
		OrderID:   a.OrderID,
	}
}

// State returns the attempt's local state, treating the zero value as pending.
func (a PaymentAttempt) State() consts.LocalState {
	if a.LocalState == "" {
		return consts.LocalStatePending
	}
	return a.LocalState
}

var polled = []consts.LocalState{
	consts.LocalStateAwaitingConfirmation,
	consts.LocalStateConfirmed,
	consts.LocalStateExpired,
}

var validTransitions = map[consts.LocalState][]consts.LocalState{
	consts.LocalStatePending:              polled,
	consts.LocalStateAwaitingConfirmation: polled,
	consts.LocalStateUnknown:              polled,
	// Terminal states only accept a repeat of themselves.
	consts.LocalStateConfirmed: {consts.LocalStateConfirmed},
	consts.LocalStateExpired:   {consts.LocalStateExpired},
}

func CanTransition(from, to consts.LocalState) bool {
	if from == "" {
		from = consts.LocalStatePending
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
