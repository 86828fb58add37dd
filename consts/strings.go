package consts

type LocalState string

const (
	LocalStatePending              LocalState = "pending"
	LocalStateAwaitingConfirmation LocalState = "awaiting-confirmation"
	LocalStateConfirmed            LocalState = "confirmed"
	LocalStateExpired              LocalState = "expired"
	LocalStateUnknown              LocalState = "unknown"
)

// Terminal reports whether no further poll can move the state.
func (s LocalState) Terminal() bool {
	return s == LocalStateConfirmed || s == LocalStateExpired
}

// RemoteStatus is the status string reported by the settlement service. Values outside
// this vocabulary are passed through untouched.
type RemoteStatus string

const (
	RemoteStatusPaid       RemoteStatus = "Paid"
	RemoteStatusSettled    RemoteStatus = "Settled"
	RemoteStatusNew        RemoteStatus = "New"
	RemoteStatusUnpaid     RemoteStatus = "Unpaid"
	RemoteStatusProcessing RemoteStatus = "Processing"
	RemoteStatusExpired    RemoteStatus = "Expired"
	RemoteStatusInvalid    RemoteStatus = "Invalid"
)

type OutcomeKind string

const (
	OutcomeKindSettled        OutcomeKind = "settled"
	OutcomeKindPending        OutcomeKind = "pending"
	OutcomeKindExpired        OutcomeKind = "expired"
	OutcomeKindUnknownStatus  OutcomeKind = "unknown-status"
	OutcomeKindNoStatus       OutcomeKind = "no-status"
	OutcomeKindTransportError OutcomeKind = "transport-error"
	OutcomeKindRejected       OutcomeKind = "rejected"
)

type PaymentFlow string

const (
	PaymentFlowPaymentLink   PaymentFlow = "payment-link"
	PaymentFlowDirectInvoice PaymentFlow = "direct-invoice"
)

type ValidationPolicy string

const (
	ValidationPolicyAbort    ValidationPolicy = "abort"
	ValidationPolicyContinue ValidationPolicy = "continue"
)
