package clients

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/Fengzdadi/solana-pay-go/types"
)

// SolanaClient implements Ledger over JSON-RPC.
type SolanaClient struct {
	endpoint   string
	client     *rpc.Client
	commitment types.Commitment
}

var _ Ledger = (*SolanaClient)(nil)

// NewSolanaClient connects a ledger handle to the given RPC endpoint. Reads
// that do not name a commitment use defaultCommitment.
func NewSolanaClient(endpoint string, defaultCommitment types.Commitment) *SolanaClient {
	if defaultCommitment == "" {
		defaultCommitment = types.CommitmentConfirmed
	}
	return &SolanaClient{
		endpoint:   endpoint,
		client:     rpc.New(endpoint),
		commitment: defaultCommitment,
	}
}

func (c *SolanaClient) Endpoint() string { return c.endpoint }

// Close shuts down the underlying RPC connection.
func (c *SolanaClient) Close() error { return c.client.Close() }

func (c *SolanaClient) FetchTransaction(ctx context.Context, sig solana.Signature, commitment types.Commitment) (*ConfirmedTransaction, error) {
	if commitment == "" {
		commitment = c.commitment
	}
	maxVersion := uint64(0)
	out, err := c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpcCommitment(commitment),
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapRPCError(err, errGetTransaction, c.endpoint)
	}
	if out == nil {
		return nil, nil
	}
	return snapshotFromResult(sig, out)
}

func (c *SolanaClient) FetchSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	out, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, wrapRPCError(err, errGetSignatureStatus, c.endpoint)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}
	v := out.Value[0]
	status := &SignatureStatus{
		Slot:          v.Slot,
		Confirmations: v.Confirmations,
		Commitment:    commitmentFromStatus(v.ConfirmationStatus),
	}
	if v.Err != nil {
		status.Failed = true
		status.FailureDetail = fmt.Sprintf("%v", v.Err)
	}
	return status, nil
}

func (c *SolanaClient) FetchAccountInfo(ctx context.Context, address solana.PublicKey) (*AccountInfo, error) {
	out, err := c.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpcCommitment(c.commitment),
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapRPCError(err, errGetAccountInfo, c.endpoint)
	}
	if out == nil || out.Value == nil {
		return nil, nil
	}
	return &AccountInfo{
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
	}, nil
}

func (c *SolanaClient) FetchTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	out, err := c.client.GetTokenSupply(ctx, mint, rpcCommitment(c.commitment))
	if err != nil {
		return 0, wrapRPCError(err, errGetTokenSupply, c.endpoint)
	}
	if out == nil || out.Value == nil {
		return 0, wrapRPCError(fmt.Errorf("empty token supply for mint %s", mint), errGetTokenSupply, c.endpoint)
	}
	return out.Value.Decimals, nil
}

func (c *SolanaClient) FetchLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.client.GetLatestBlockhash(ctx, rpcCommitment(c.commitment))
	if err != nil {
		return solana.Hash{}, wrapRPCError(err, errGetLatestBlockhash, c.endpoint)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, wrapRPCError(errors.New("empty blockhash response"), errGetLatestBlockhash, c.endpoint)
	}
	return out.Value.Blockhash, nil
}

// snapshotFromResult flattens an RPC transaction result into the immutable
// snapshot validation reads from. Account indices are resolved eagerly so the
// snapshot stands alone.
func snapshotFromResult(sig solana.Signature, out *rpc.GetTransactionResult) (*ConfirmedTransaction, error) {
	if out.Transaction == nil {
		return nil, &types.Error{Code: types.ErrTransport, Message: "transaction result carries no transaction payload"}
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, &types.Error{Code: types.ErrTransport, Message: fmt.Sprintf("decode transaction: %v", err), Err: err}
	}

	ct := &ConfirmedTransaction{
		Signature: sig,
		Slot:      out.Slot,
	}
	if out.BlockTime != nil {
		t := out.BlockTime.Time()
		ct.BlockTime = &t
	}

	keys := make([]solana.PublicKey, 0, len(tx.Message.AccountKeys))
	keys = append(keys, tx.Message.AccountKeys...)
	if out.Meta != nil {
		// Versioned transactions list lookup-table addresses in meta, ordered
		// writable first.
		keys = append(keys, out.Meta.LoadedAddresses.Writable...)
		keys = append(keys, out.Meta.LoadedAddresses.ReadOnly...)
	}
	ct.AccountKeys = keys

	for _, ci := range tx.Message.Instructions {
		view := InstructionView{Data: ci.Data}
		if int(ci.ProgramIDIndex) < len(keys) {
			view.ProgramID = keys[ci.ProgramIDIndex]
		}
		for _, ai := range ci.Accounts {
			if int(ai) < len(keys) {
				view.Accounts = append(view.Accounts, keys[ai])
			}
		}
		ct.Instructions = append(ct.Instructions, view)
	}

	if out.Meta != nil {
		meta := out.Meta
		ct.Fee = meta.Fee
		ct.PreBalances = meta.PreBalances
		ct.PostBalances = meta.PostBalances
		ct.LogMessages = meta.LogMessages
		if meta.Err != nil {
			ct.Failed = true
			ct.FailureDetail = fmt.Sprintf("%v", meta.Err)
		}
		pre, err := convertTokenBalances(meta.PreTokenBalances)
		if err != nil {
			return nil, &types.Error{Code: types.ErrTransport, Message: fmt.Sprintf("pre token balances: %v", err), Err: err}
		}
		post, err := convertTokenBalances(meta.PostTokenBalances)
		if err != nil {
			return nil, &types.Error{Code: types.ErrTransport, Message: fmt.Sprintf("post token balances: %v", err), Err: err}
		}
		ct.PreTokenBalances = pre
		ct.PostTokenBalances = post
	}
	return ct, nil
}

func convertTokenBalances(in []rpc.TokenBalance) ([]TokenBalance, error) {
	out := make([]TokenBalance, 0, len(in))
	for _, tb := range in {
		conv := TokenBalance{
			AccountIndex: tb.AccountIndex,
			Mint:         tb.Mint,
		}
		if tb.Owner != nil {
			conv.Owner = *tb.Owner
		}
		if tb.UiTokenAmount != nil {
			conv.Decimals = tb.UiTokenAmount.Decimals
			amount, err := strconv.ParseUint(tb.UiTokenAmount.Amount, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("account %d: malformed amount %q: %w", tb.AccountIndex, tb.UiTokenAmount.Amount, err)
			}
			conv.Amount = amount
		}
		out = append(out, conv)
	}
	return out, nil
}

func rpcCommitment(c types.Commitment) rpc.CommitmentType {
	switch c {
	case types.CommitmentProcessed:
		return rpc.CommitmentProcessed
	case types.CommitmentFinalized:
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

func commitmentFromStatus(s rpc.ConfirmationStatusType) types.Commitment {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return types.CommitmentProcessed
	case rpc.ConfirmationStatusConfirmed:
		return types.CommitmentConfirmed
	case rpc.ConfirmationStatusFinalized:
		return types.CommitmentFinalized
	default:
		return ""
	}
}
