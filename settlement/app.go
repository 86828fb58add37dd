package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/metrics"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
	"go.uber.org/zap"
)

type StatusLookup interface {
	Lookup(ctx context.Context, req resolver.LookupRequest) (resolver.StatusReport, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Outcome is the result of one poll. LocalState is the attempt's state after the poll.
type Outcome struct {
	AttemptID  string
	Kind       consts.OutcomeKind
	LocalState consts.LocalState
	Status     string
	Notice     *resolver.Notice
	Cause      error
}

type Reconciler struct {
	lookup   StatusLookup
	notifier Notifier
	log      *zap.Logger
	metrics  *metrics.Recorder
}

// NewReconciler wires a reconciler. notifier, log and m may all be nil.
func NewReconciler(lookup StatusLookup, notifier Notifier, log *zap.Logger, m *metrics.Recorder) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		lookup:   lookup,
		notifier: notifier,
		log:      log.Named("reconciler"),
		metrics:  m,
	}
}

// Reconcile polls the settlement service once for attempt and applies the result to
// attempt.LocalState. Failures are reported in the outcome and never returned or
// panicked, so callers can keep evaluating other attempts.
func (r *Reconciler) Reconcile(ctx context.Context, attempt *resolver.PaymentAttempt) (outcome Outcome) {
	if attempt == nil {
		r.metrics.ObserveOutcome(string(consts.OutcomeKindRejected))
		return Outcome{Kind: consts.OutcomeKindRejected, Cause: errors.ErrMissingAttempt}
	}
	outcome = Outcome{
		AttemptID:  attempt.ID,
		LocalState: attempt.State(),
	}
	defer func() {
		r.metrics.ObserveOutcome(string(outcome.Kind))
	}()

	log := r.log.With(
		zap.String("attempt_id", attempt.ID),
		zap.String("order_id", attempt.OrderID),
		zap.String("method_id", attempt.MethodID),
		zap.String("invoice_id", attempt.RemoteInvoiceID),
	)

	if err := attempt.Validate(); err != nil {
		outcome.Kind = consts.OutcomeKindRejected
		outcome.Cause = err
		log.Warn("refusing to poll payment attempt", zap.Error(err))
		return outcome
	}

	start := time.Now()
	report, err := r.doLookup(ctx, attempt.LookupRequest())
	r.metrics.ObserveLookup(attempt.MethodID, time.Since(start))
	if err != nil {
		outcome.Kind = consts.OutcomeKindTransportError
		outcome.Cause = fmt.Errorf("%w: %w", errors.ErrTransport, err)
		log.Warn("settlement status lookup failed", zap.Error(err))
		return outcome
	}

	res := resolver.Resolve(report.Status)
	outcome.Kind = res.Kind
	outcome.Status = report.Status
	outcome.Notice = res.Notice
	log = log.With(zap.String("status", report.Status), zap.String("kind", string(res.Kind)))

	if res.ChangesState() {
		from := attempt.State()
		if !resolver.CanTransition(from, res.State) {
			// A settled or expired attempt keeps its state; the stale notice is dropped.
			outcome.Notice = nil
			outcome.Cause = fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, from, res.State)
			log.Warn("ignoring status for finished payment attempt", zap.String("local_state", string(from)))
			return outcome
		}
		attempt.LocalState = res.State
		outcome.LocalState = res.State
	}

	switch res.Kind {
	case consts.OutcomeKindUnknownStatus:
		log.Info("settlement service returned an unrecognized status")
	case consts.OutcomeKindNoStatus:
		log.Debug("settlement service returned no status")
	default:
		log.Debug("payment attempt reconciled", zap.String("local_state", string(outcome.LocalState)))
	}

	if outcome.Notice != nil && r.notifier != nil {
		if err := r.notifier.Notify(ctx, outcome.Notice.Title, outcome.Notice.Body); err != nil {
			log.Warn("failed to deliver payment notice", zap.Error(err))
		}
	}
	return outcome
}

func (r *Reconciler) doLookup(ctx context.Context, req resolver.LookupRequest) (report resolver.StatusReport, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("status lookup panicked: %v", p)
		}
	}()
	return r.lookup.Lookup(ctx, req)
}
