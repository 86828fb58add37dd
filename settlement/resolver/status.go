package resolver

import (
	"github.com/davidjwilkins/declarative-settlements/consts"
)

type Notice struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var (
	NoticePending = Notice{
		Title: "Payment Request Pending",
		Body:  "Payment pending, retry after customer confirms",
	}
	NoticeExpired = Notice{
		Title: "Payment Request Expired",
		Body:  "Payment request expired, send a new request",
	}
	NoticeUnknown = Notice{
		Title: "Payment Request Unknown",
		Body:  "Payment request status unknown",
	}
)

// Resolution is what a single remote status means locally. An empty State leaves the
// attempt's local state as it is.
type Resolution struct {
	Kind   consts.OutcomeKind
	State  consts.LocalState
	Notice *Notice
}

func (r Resolution) ChangesState() bool {
	return r.State != ""
}

func settled() Resolution {
	return Resolution{Kind: consts.OutcomeKindSettled, State: consts.LocalStateConfirmed}
}

func pending() Resolution {
	n := NoticePending
	return Resolution{Kind: consts.OutcomeKindPending, State: consts.LocalStateAwaitingConfirmation, Notice: &n}
}

func expired() Resolution {
	n := NoticeExpired
	return Resolution{Kind: consts.OutcomeKindExpired, State: consts.LocalStateExpired, Notice: &n}
}

var statusTable = map[consts.RemoteStatus]func() Resolution{
	consts.RemoteStatusPaid:       settled,
	consts.RemoteStatusSettled:    settled,
	consts.RemoteStatusNew:        pending,
	consts.RemoteStatusUnpaid:     pending,
	consts.RemoteStatusProcessing: pending,
	consts.RemoteStatusExpired:    expired,
	consts.RemoteStatusInvalid:    expired,
}

// Vocabulary lists every remote status with a dedicated mapping.
func Vocabulary() []consts.RemoteStatus {
	return []consts.RemoteStatus{
		consts.RemoteStatusPaid,
		consts.RemoteStatusSettled,
		consts.RemoteStatusNew,
		consts.RemoteStatusUnpaid,
		consts.RemoteStatusProcessing,
		consts.RemoteStatusExpired,
		consts.RemoteStatusInvalid,
	}
}

// Resolve maps a remote status onto its local meaning. Matching is exact; the
// settlement service's casing is part of its vocabulary.
func Resolve(status string) Resolution {
	if status == "" {
		return Resolution{Kind: consts.OutcomeKindNoStatus}
	}
	if fn, ok := statusTable[consts.RemoteStatus(status)]; ok {
		return fn()
	}
	n := NoticeUnknown
	return Resolution{Kind: consts.OutcomeKindUnknownStatus, Notice: &n}
}
