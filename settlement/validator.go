package settlement

import (
	"context"
	"fmt"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/davidjwilkins/declarative-settlements/settlement/resolver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type OrderResult struct {
	OrderID string
	// Outcomes is in the same order as the attempts passed in.
	Outcomes []Outcome
	// Ready is true when every attempt is confirmed.
	Ready bool
}

// Validator reconciles every payment attempt of an order before it is completed.
type Validator struct {
	reconciler  *Reconciler
	policy      consts.ValidationPolicy
	concurrency int
}

func NewValidator(reconciler *Reconciler, policy consts.ValidationPolicy, concurrency int) *Validator {
	if policy == "" {
		policy = consts.ValidationPolicyAbort
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Validator{
		reconciler:  reconciler,
		policy:      policy,
		concurrency: concurrency,
	}
}

func (v *Validator) Policy() consts.ValidationPolicy {
	return v.policy
}

// ValidateOrder polls every attempt once. Distinct attempts are polled concurrently;
// entries sharing an attempt (same ID, or the same pointer when the ID is empty) are
// polled one after another.
//
// Under the abort policy the first transport error cancels the remaining polls and is
// returned wrapped in errors.ErrTransport. Attempts that were never polled get a
// transport-error outcome carrying the cancellation cause.
func (v *Validator) ValidateOrder(ctx context.Context, orderID string, attempts []*resolver.PaymentAttempt) (OrderResult, error) {
	result := OrderResult{
		OrderID:  orderID,
		Outcomes: make([]Outcome, len(attempts)),
	}
	log := v.reconciler.log.With(zap.String("order_id", orderID), zap.Int("attempts", len(attempts)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, idxs := range groupAttempts(attempts) {
		idxs := idxs
		g.Go(func() error {
			for _, i := range idxs {
				a := attempts[i]
				if err := gctx.Err(); err != nil {
					result.Outcomes[i] = notPolled(a, err)
					continue
				}
				out := v.reconciler.Reconcile(gctx, a)
				result.Outcomes[i] = out
				if out.Kind == consts.OutcomeKindTransportError && v.policy == consts.ValidationPolicyAbort {
					return fmt.Errorf("attempt %s: %w", out.AttemptID, out.Cause)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i, out := range result.Outcomes {
			if out.Kind == "" {
				result.Outcomes[i] = notPolled(attempts[i], err)
			}
		}
		v.reconciler.metrics.ObserveValidation("aborted")
		log.Warn("order validation aborted", zap.Error(err))
		return result, err
	}

	result.Ready = true
	for _, out := range result.Outcomes {
		if out.LocalState != consts.LocalStateConfirmed {
			result.Ready = false
			break
		}
	}
	if result.Ready {
		v.reconciler.metrics.ObserveValidation("ready")
	} else {
		v.reconciler.metrics.ObserveValidation("not_ready")
	}
	log.Debug("order validated", zap.Bool("ready", result.Ready))
	return result, nil
}

func notPolled(a *resolver.PaymentAttempt, cause error) Outcome {
	if a == nil {
		return Outcome{Kind: consts.OutcomeKindRejected, Cause: errors.ErrMissingAttempt}
	}
	return Outcome{
		AttemptID:  a.ID,
		Kind:       consts.OutcomeKindTransportError,
		LocalState: a.State(),
		Cause:      fmt.Errorf("%w: not polled: %w", errors.ErrTransport, cause),
	}
}

// groupAttempts returns attempt indexes grouped by identity, in order of first
// appearance.
func groupAttempts(attempts []*resolver.PaymentAttempt) [][]int {
	var groups [][]int
	byID := make(map[string]int)
	byPtr := make(map[*resolver.PaymentAttempt]int)
	for i, a := range attempts {
		id := ""
		if a != nil {
			id = a.ID
		}
		g, ok := byPtr[a]
		if !ok && id != "" {
			g, ok = byID[id]
		}
		if !ok {
			g = len(groups)
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
		byPtr[a] = g
		if id != "" {
			byID[id] = g
		}
	}
	return groups
}
