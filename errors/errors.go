package errors

import "errors"

var ErrMissingAttempt = errors.New("no payment attempt given")
var ErrMissingInvoiceID = errors.New("payment attempt has no remote invoice id")
var ErrMissingMethodID = errors.New("payment attempt has no payment method id")
var ErrTransport = errors.New("settlement status lookup failed")
var ErrUnexpectedStatusCode = errors.New("unexpected status code from settlement service")
var ErrUnknownMethod = errors.New("no status lookup registered for payment method")
var ErrInvalidTransition = errors.New("local state transition not allowed")
var ErrInvalidConfig = errors.New("invalid configuration")
var Is = errors.Is
var As = errors.As
var New = errors.New
