// Package solanapay builds unsigned Solana Pay transactions from structured
// payment requests and verifies, from confirmed ledger data, that a payment
// matched what was requested. The library never holds private keys and never
// submits transactions; signing and submission stay with the caller.
package solanapay

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/Fengzdadi/solana-pay-go/amounts"
	"github.com/Fengzdadi/solana-pay-go/builder"
	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/confirm"
	"github.com/Fengzdadi/solana-pay-go/logger"
	"github.com/Fengzdadi/solana-pay-go/metrics"
	"github.com/Fengzdadi/solana-pay-go/types"
	"github.com/Fengzdadi/solana-pay-go/utils"
	"github.com/Fengzdadi/solana-pay-go/verification"
)

// Client is the main entry point. It is safe for concurrent use; any number
// of Build and WaitAndVerify calls may run at once against the same instance.
type Client struct {
	config   *types.Config
	ledger   clients.Ledger
	registry *amounts.Registry
	waiter   *confirm.Waiter
	log      logger.Logger
	metrics  metrics.Recorder
}

// New creates a Client for the configured cluster. A nil config targets
// mainnet-beta with defaults.
func New(config *types.Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = &types.Config{}
	}
	if config.Cluster == "" {
		config.Cluster = types.ClusterMainnetBeta
	}
	if config.DefaultCommitment == "" {
		config.DefaultCommitment = types.CommitmentConfirmed
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 60 * time.Second
	}

	endpoint := config.RPCUrl
	if endpoint == "" {
		endpoint = config.Cluster.DefaultEndpoint()
	}
	if err := utils.ValidateEndpoint(endpoint); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("invalid RPC endpoint for cluster %s: %v", config.Cluster, err),
			Err:     err,
		}
	}

	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		if config.LogLevel != "" {
			c.log = logger.NewZapLogger(config.LogLevel)
		} else {
			c.log = logger.NoopLogger{}
		}
	}
	if c.metrics == nil {
		c.metrics = metrics.NoopRecorder{}
	}
	if c.ledger == nil {
		c.ledger = clients.NewSolanaClient(endpoint, config.DefaultCommitment)
	}

	registry, err := amounts.NewRegistry(c.ledger, config.DecimalsCacheSize)
	if err != nil {
		return nil, err
	}
	c.registry = registry
	c.waiter = confirm.NewWaiter(c.ledger, c.log, config.PollInterval)

	c.log.Debug("client initialised", map[string]any{
		"cluster":  config.Cluster.String(),
		"endpoint": endpoint,
		"version":  Version,
	})
	return c, nil
}

// NewWithDefaults creates a Client against public mainnet-beta.
func NewWithDefaults() (*Client, error) {
	return New(nil)
}

// Build assembles an unsigned transaction paying the request, with feePayer
// covering fees and, for native transfers, acting as the sender. The returned
// plan is owned by the caller; the client keeps no reference to it.
func (c *Client) Build(ctx context.Context, req *types.PaymentRequest, feePayer string, opts *types.TransactionOptions) (*types.TransactionPlan, error) {
	start := time.Now()

	plan, err := c.build(ctx, req, feePayer, opts)
	c.record(metrics.MetricBuild, start, err)
	if err != nil {
		c.log.Warn("build failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log.Info("transaction built", map[string]any{
		"recipient":    req.Recipient,
		"instructions": plan.InstructionsCount,
		"signers":      len(plan.SignersRequired),
	})
	return plan, nil
}

func (c *Client) build(ctx context.Context, req *types.PaymentRequest, feePayer string, opts *types.TransactionOptions) (*types.TransactionPlan, error) {
	if req == nil {
		return nil, &types.Error{Code: types.ErrInvalidRequest, Message: "payment request is nil"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payer, err := solana.PublicKeyFromBase58(feePayer)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid fee payer %q: %v", feePayer, err),
		}
	}
	return builder.BuildTransaction(ctx, c.ledger, c.registry, req, payer, opts)
}

// WaitAndVerify polls for the signature until it reaches the configured
// commitment, then validates the landed transaction against the request. A
// payment that timed out, was cancelled, failed on-chain, or does not match
// the request is a normal outcome carried in the result with a nil error;
// errors are reserved for malformed input.
func (c *Client) WaitAndVerify(ctx context.Context, signature string, req *types.PaymentRequest, cfg *types.ValidationConfig) (*types.ValidationResult, error) {
	start := time.Now()

	result, err := c.waitAndVerify(ctx, signature, req, cfg)
	c.record(metrics.MetricWait, start, err)
	if err != nil {
		return nil, err
	}

	c.log.Info("payment verified", map[string]any{
		"signature": utils.TruncateSignature(signature),
		"status":    result.Status.String(),
		"valid":     result.IsValid,
	})
	return result, nil
}

func (c *Client) waitAndVerify(ctx context.Context, signature string, req *types.PaymentRequest, cfg *types.ValidationConfig) (*types.ValidationResult, error) {
	sig, req2, cfg2, err := c.checkVerifyArgs(signature, req, cfg)
	if err != nil {
		return nil, err
	}

	maxWait := cfg2.MaxWait
	if maxWait <= 0 {
		maxWait = c.config.DefaultTimeout
	}

	waited, err := c.waiter.Wait(ctx, sig, cfg2.Commitment, maxWait)
	if err != nil {
		return nil, err
	}

	switch waited.Status {
	case types.StatusConfirmed:
		return verification.Validate(waited.Snapshot, req2, cfg2), nil
	case types.StatusFailedOnChain:
		return &types.ValidationResult{
			Status:    types.StatusFailedOnChain,
			Signature: signature,
			Errors:    []string{fmt.Sprintf("transaction failed on-chain: %s", waited.FailureDetail)},
		}, nil
	case types.StatusCancelled:
		return &types.ValidationResult{
			Status:    types.StatusCancelled,
			Signature: signature,
			Errors:    []string{"confirmation wait cancelled by caller"},
		}, nil
	default:
		return &types.ValidationResult{
			Status:    types.StatusTimedOut,
			Signature: signature,
			Errors: []string{fmt.Sprintf("confirmation timed out after %s (last observed: %s)",
				maxWait, waited.LastObserved)},
		}, nil
	}
}

// ValidateTransaction validates an already-landed transaction without
// waiting. A transaction the ledger has no record of yields a not-found
// result, not an error.
func (c *Client) ValidateTransaction(ctx context.Context, signature string, req *types.PaymentRequest, cfg *types.ValidationConfig) (*types.ValidationResult, error) {
	start := time.Now()

	sig, req2, cfg2, err := c.checkVerifyArgs(signature, req, cfg)
	if err != nil {
		c.record(metrics.MetricValidate, start, err)
		return nil, err
	}

	snapshot, err := c.ledger.FetchTransaction(ctx, sig, cfg2.Commitment)
	c.record(metrics.MetricValidate, start, err)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return &types.ValidationResult{
			Status:    types.StatusNotFound,
			Signature: signature,
			Errors:    []string{fmt.Sprintf("transaction not found at %s commitment", cfg2.Commitment)},
		}, nil
	}
	return verification.Validate(snapshot, req2, cfg2), nil
}

// Status probes the current confirmation status of a signature without
// waiting. It returns nil when the ledger has no record of it.
func (c *Client) Status(ctx context.Context, signature string) (*clients.SignatureStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid signature %q: %v", signature, err),
		}
	}
	return c.ledger.FetchSignatureStatus(ctx, sig)
}

func (c *Client) checkVerifyArgs(signature string, req *types.PaymentRequest, cfg *types.ValidationConfig) (solana.Signature, *types.PaymentRequest, *types.ValidationConfig, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return solana.Signature{}, nil, nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid signature %q: %v", signature, err),
		}
	}
	if req == nil {
		return solana.Signature{}, nil, nil, &types.Error{Code: types.ErrInvalidRequest, Message: "payment request is nil"}
	}
	if err := req.Validate(); err != nil {
		return solana.Signature{}, nil, nil, err
	}
	if cfg == nil {
		cfg = types.DefaultValidationConfig()
	}
	if err := cfg.Validate(); err != nil {
		return solana.Signature{}, nil, nil, err
	}
	return sig, req, cfg, nil
}

func (c *Client) record(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	labels := map[string]string{"operation": op, "outcome": outcome}
	c.metrics.IncCounter(op, labels)
	c.metrics.ObserveLatency(op, time.Since(start), labels)
}

// Close releases the underlying RPC connection when the ledger owns one.
func (c *Client) Close() {
	if closer, ok := c.ledger.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// Version identifies the library release reported in client logs.
const Version = "1.0.0"

// DecimalFromString parses a human-readable amount such as "0.5". Malformed
// input is an error, never a zero amount.
func DecimalFromString(s string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("invalid decimal amount %q: %v", s, err),
			Err:     err,
		}
	}
	return &d, nil
}

// MustDecimalFromString is DecimalFromString for hardcoded amounts. It panics
// on malformed input.
func MustDecimalFromString(s string) *decimal.Decimal {
	d, err := DecimalFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
