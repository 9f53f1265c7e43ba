package types

import (
	"time"
)

// Cluster identifies a Solana cluster.
type Cluster string

const (
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterLocalnet    Cluster = "localnet"
)

// DefaultEndpoint returns the public RPC endpoint for the cluster.
func (c Cluster) DefaultEndpoint() string {
	switch c {
	case ClusterMainnetBeta:
		return "https://api.mainnet-beta.solana.com"
	case ClusterDevnet:
		return "https://api.devnet.solana.com"
	case ClusterTestnet:
		return "https://api.testnet.solana.com"
	case ClusterLocalnet:
		return "http://127.0.0.1:8899"
	default:
		return ""
	}
}

func (c Cluster) String() string { return string(c) }

// Commitment is the finality level a ledger entry has reached.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Rank orders commitments from weakest to strongest. Unknown values rank
// below processed so they never satisfy a requirement.
func (c Commitment) Rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether c satisfies the required commitment level.
func (c Commitment) AtLeast(required Commitment) bool {
	return c.Rank() >= required.Rank()
}

func (c Commitment) String() string { return string(c) }

// Config is the global configuration for a solanapay client.
type Config struct {
	// RPCUrl overrides the cluster's default endpoint when set.
	RPCUrl  string  `json:"rpcUrl,omitempty"`
	Cluster Cluster `json:"cluster,omitempty"`

	// DefaultCommitment is used for RPC reads when a call does not name one.
	DefaultCommitment Commitment `json:"defaultCommitment,omitempty"`

	// DefaultTimeout bounds WaitAndVerify when the validation config does not
	// set its own maximum wait.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`

	// PollInterval is the initial confirmation poll interval; the waiter backs
	// off from here.
	PollInterval time.Duration `json:"pollInterval,omitempty"`

	// DecimalsCacheSize bounds the mint-decimals LRU cache.
	DecimalsCacheSize int `json:"decimalsCacheSize,omitempty"`

	LogLevel string `json:"logLevel,omitempty"`
}

// TransactionOptions customises transaction building.
type TransactionOptions struct {
	// AutoCreateRecipientATA prepends a create instruction for the recipient's
	// associated token account when it does not exist yet, funded by the payer.
	AutoCreateRecipientATA bool `json:"autoCreateRecipientAta"`

	// AmountBaseUnits overrides the request amount with an explicit base-unit
	// value. It is the only way to build a token transfer for a request that
	// carries no decimal amount.
	AmountBaseUnits *uint64 `json:"amountBaseUnits,omitempty"`

	// ComputeUnitLimit and ComputeUnitPrice emit compute-budget instructions
	// ahead of all payment instructions when set.
	ComputeUnitLimit uint32 `json:"computeUnitLimit,omitempty"`
	ComputeUnitPrice uint64 `json:"computeUnitPrice,omitempty"` // micro-lamports per unit
}

// DefaultTransactionOptions returns the options used when the caller passes nil.
func DefaultTransactionOptions() *TransactionOptions {
	return &TransactionOptions{AutoCreateRecipientATA: true}
}

// TransactionPlan is the result of building an unsigned transaction. The
// caller owns it exclusively; the library keeps no reference after returning.
type TransactionPlan struct {
	// Transaction is the base64-encoded unsigned wire form, with placeholder
	// signatures sized to the required signer count.
	Transaction string `json:"transaction"`

	FeePayer        string `json:"feePayer"`
	RecentBlockhash string `json:"recentBlockhash"`

	// SignersRequired lists the public keys that must sign before submission.
	SignersRequired   []string `json:"signersRequired"`
	InstructionsCount int      `json:"instructionsCount"`

	// EstimatedFee is in lamports: the base signature fee plus the
	// priority-fee contribution when compute-budget options were set.
	EstimatedFee uint64 `json:"estimatedFee"`

	UsesLookupTables bool   `json:"usesLookupTables"`
	ComputeUnits     uint32 `json:"computeUnits,omitempty"`
}

// Error is the library error type. Code is one of the Err* constants below.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return "[" + e.Code + "] " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Error codes. Input and resource errors fail fast and are never retried
// here; transport errors are surfaced distinctly so callers can apply their
// own retry policy. A payment that does not match expectations is not an
// error at all: it is carried in ValidationResult.
const (
	ErrInvalidRequest  = "INVALID_REQUEST"
	ErrPrecision       = "PRECISION_ERROR"
	ErrAccountNotFound = "ACCOUNT_NOT_FOUND"
	ErrMissingAmount   = "MISSING_AMOUNT"
	ErrTransport       = "TRANSPORT_ERROR"
	ErrConfig          = "CONFIG_ERROR"
)
