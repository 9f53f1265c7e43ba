// Package clients holds the ledger collaborator surface the payment core
// reads through, and its Solana RPC implementation. The core never mutates
// ledger state; besides the blockhash and account-existence queries used for
// building, every call here is a read.
package clients

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/Fengzdadi/solana-pay-go/types"
)

// Ledger is the capability surface the payment core consumes. Implementations
// must be safe for concurrent use; any number of build/validate calls may run
// at once against the same handle.
type Ledger interface {
	// FetchTransaction returns an immutable snapshot of a landed transaction,
	// or nil when the ledger has no record at the given commitment.
	FetchTransaction(ctx context.Context, sig solana.Signature, commitment types.Commitment) (*ConfirmedTransaction, error)

	// FetchSignatureStatus returns the processing status of a signature, or
	// nil when the ledger has no record of it.
	FetchSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)

	// FetchAccountInfo returns basic account info, or nil when the account
	// does not exist.
	FetchAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error)

	// FetchTokenDecimals returns the decimal precision of an SPL mint.
	FetchTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)

	// FetchLatestBlockhash returns a recent blockhash for transaction
	// freshness.
	FetchLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// AccountInfo is the slice of account state the core cares about.
type AccountInfo struct {
	Owner    solana.PublicKey
	Lamports uint64
}

// SignatureStatus is a lightweight confirmation probe result.
type SignatureStatus struct {
	Slot          uint64
	Confirmations *uint64
	Commitment    types.Commitment
	// Failed is set when the transaction executed but errored on-chain.
	Failed        bool
	FailureDetail string
}

// InstructionView is one top-level instruction of a landed transaction with
// its account indices resolved to public keys.
type InstructionView struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

// TokenBalance is a token account balance observation from transaction meta.
type TokenBalance struct {
	AccountIndex uint16
	Mint         solana.PublicKey
	Owner        solana.PublicKey
	Amount       uint64
	Decimals     uint8
}

// ConfirmedTransaction is an immutable snapshot of a transaction as observed
// on the ledger. All validation dimensions read from the same snapshot, so no
// check can race another's view of the transaction.
type ConfirmedTransaction struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time

	// Failed is set when the transaction executed but errored on-chain.
	Failed        bool
	FailureDetail string

	Fee uint64

	AccountKeys  []solana.PublicKey
	Instructions []InstructionView

	PreBalances  []uint64
	PostBalances []uint64

	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance

	LogMessages []string
}

// AccountIndex returns the position of an address in the account keys, or -1.
func (ct *ConfirmedTransaction) AccountIndex(address solana.PublicKey) int {
	for i, key := range ct.AccountKeys {
		if key.Equals(address) {
			return i
		}
	}
	return -1
}

// LamportsDelta is the native balance change of an address across the
// transaction (post minus pre). The second return is false when the address
// does not appear in the transaction.
func (ct *ConfirmedTransaction) LamportsDelta(address solana.PublicKey) (int64, bool) {
	i := ct.AccountIndex(address)
	if i < 0 || i >= len(ct.PreBalances) || i >= len(ct.PostBalances) {
		return 0, false
	}
	return int64(ct.PostBalances[i]) - int64(ct.PreBalances[i]), true
}

// TokenDelta is the base-unit balance change of the token account owned by
// owner for mint. An account absent on one side counts as zero there (a
// freshly created recipient account has no pre balance). The second return is
// false when the account appears on neither side.
func (ct *ConfirmedTransaction) TokenDelta(owner, mint solana.PublicKey) (int64, bool) {
	pre, preOK := findTokenBalance(ct.PreTokenBalances, owner, mint)
	post, postOK := findTokenBalance(ct.PostTokenBalances, owner, mint)
	if !preOK && !postOK {
		return 0, false
	}
	return int64(post) - int64(pre), true
}

// TokenBalanceFor returns the post-transaction token balance entry owned by
// owner for mint.
func (ct *ConfirmedTransaction) TokenBalanceFor(owner, mint solana.PublicKey) (TokenBalance, bool) {
	for _, tb := range ct.PostTokenBalances {
		if tb.Owner.Equals(owner) && tb.Mint.Equals(mint) {
			return tb, true
		}
	}
	return TokenBalance{}, false
}

func findTokenBalance(balances []TokenBalance, owner, mint solana.PublicKey) (uint64, bool) {
	for _, tb := range balances {
		if tb.Owner.Equals(owner) && tb.Mint.Equals(mint) {
			return tb.Amount, true
		}
	}
	return 0, false
}
