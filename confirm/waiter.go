// Package confirm polls the ledger for a transaction signature until it
// reaches a required finality level, fails on-chain, or a wall-clock deadline
// expires. The poll loop is the only place in the library that blocks, and it
// suspends only between polls, never mid-check.
package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"

	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/logger"
	"github.com/Fengzdadi/solana-pay-go/types"
)

// DefaultPollInterval is the initial gap between polls; the waiter backs off
// from here with jitter, capped at maxIntervalFactor times the initial.
const DefaultPollInterval = time.Second

const maxIntervalFactor = 8

// Result is the terminal outcome of a wait.
type Result struct {
	// Status is one of Confirmed, FailedOnChain, TimedOut, Cancelled.
	Status types.ConfirmationStatus

	// LastObserved is the last non-terminal state seen while polling:
	// Pending, NotFound or LowCommitment.
	LastObserved types.ConfirmationStatus

	// Snapshot is set only when Status is Confirmed.
	Snapshot *clients.ConfirmedTransaction

	FailureDetail string
	Elapsed       time.Duration
	Polls         int
}

// Waiter drives the confirmation poll loop. It holds no per-wait state; one
// waiter may serve concurrent waits for different signatures.
type Waiter struct {
	ledger       clients.Ledger
	log          logger.Logger
	pollInterval time.Duration
}

func NewWaiter(ledger clients.Ledger, log logger.Logger, pollInterval time.Duration) *Waiter {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Waiter{ledger: ledger, log: log, pollInterval: pollInterval}
}

// Wait polls until the signature reaches the required commitment, fails
// on-chain, the wall-clock deadline maxWait passes, or ctx is cancelled.
// Transient transport errors are retried within the backoff schedule; they
// never abort the wait. A timeout is declared exactly when elapsed time
// reaches maxWait, never later than one poll interval past it. Cancellation
// is reported as its own outcome, never conflated with a timeout.
func (w *Waiter) Wait(ctx context.Context, sig solana.Signature, required types.Commitment, maxWait time.Duration) (*Result, error) {
	if maxWait <= 0 {
		return nil, &types.Error{Code: types.ErrConfig, Message: "maxWait must be positive"}
	}
	if required.Rank() == 0 {
		return nil, &types.Error{Code: types.ErrConfig, Message: "invalid required commitment"}
	}

	start := time.Now()
	deadline := start.Add(maxWait)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.pollInterval
	bo.MaxInterval = w.pollInterval * maxIntervalFactor
	bo.Multiplier = 1.5
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0 // the wall clock below governs termination
	bo.Reset()

	result := &Result{LastObserved: types.StatusPending}

	for {
		if ctx.Err() != nil {
			return w.finish(result, types.StatusCancelled, start), nil
		}

		result.Polls++
		observed, snapshot, detail, err := w.poll(ctx, sig, required)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return w.finish(result, types.StatusCancelled, start), nil
			}
			w.log.Warn("confirmation poll failed, retrying", map[string]any{
				"signature": sig.String(),
				"error":     err.Error(),
			})
		case observed == types.StatusFailedOnChain:
			result.FailureDetail = detail
			return w.finish(result, types.StatusFailedOnChain, start), nil
		case observed == types.StatusConfirmed:
			result.Snapshot = snapshot
			return w.finish(result, types.StatusConfirmed, start), nil
		default:
			result.LastObserved = observed
		}

		now := time.Now()
		if !now.Before(deadline) {
			return w.finish(result, types.StatusTimedOut, start), nil
		}
		sleep := bo.NextBackOff()
		if remaining := deadline.Sub(now); sleep > remaining {
			sleep = remaining
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return w.finish(result, types.StatusCancelled, start), nil
		case <-timer.C:
		}
	}
}

// poll runs a single confirmation check. It never sleeps.
func (w *Waiter) poll(ctx context.Context, sig solana.Signature, required types.Commitment) (types.ConfirmationStatus, *clients.ConfirmedTransaction, string, error) {
	status, err := w.ledger.FetchSignatureStatus(ctx, sig)
	if err != nil {
		return types.StatusUnknown, nil, "", err
	}
	if status == nil {
		return types.StatusNotFound, nil, "", nil
	}
	if status.Failed {
		return types.StatusFailedOnChain, nil, status.FailureDetail, nil
	}
	if !status.Commitment.AtLeast(required) {
		return types.StatusLowCommitment, nil, "", nil
	}

	snapshot, err := w.ledger.FetchTransaction(ctx, sig, required)
	if err != nil {
		return types.StatusUnknown, nil, "", err
	}
	if snapshot == nil {
		// Status and transaction queries can briefly disagree; poll again.
		return types.StatusLowCommitment, nil, "", nil
	}
	if snapshot.Failed {
		return types.StatusFailedOnChain, nil, snapshot.FailureDetail, nil
	}
	return types.StatusConfirmed, snapshot, "", nil
}

func (w *Waiter) finish(result *Result, status types.ConfirmationStatus, start time.Time) *Result {
	result.Status = status
	result.Elapsed = time.Since(start)
	w.log.Debug("confirmation wait finished", map[string]any{
		"status":  status.String(),
		"polls":   result.Polls,
		"elapsed": result.Elapsed.String(),
	})
	return result
}
