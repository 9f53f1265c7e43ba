// Package builder turns a payment request into an ordered instruction list
// and wraps it into an unsigned, versioned transaction skeleton. Everything
// built here carries placeholder signatures and must be signed by the
// caller's wallet layer.
package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/Fengzdadi/solana-pay-go/amounts"
	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/types"
)

// MemoProgramID is the SPL Memo v2 program.
var MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// Summary carries derived facts about an assembled instruction list.
type Summary struct {
	// HasTransfer is false for open-ended requests with no fixed amount.
	HasTransfer    bool
	TransferAmount uint64 // base units
	Decimals       uint8

	// RecipientTokenAccount is the derived associated token account for SPL
	// transfers; zero for native transfers.
	RecipientTokenAccount solana.PublicKey
	CreatesTokenAccount   bool
}

// AssembleInstructions builds the ordered payment instruction list:
// optional receiving-account creation, the transfer with references attached,
// optional memo. An absent or zero amount yields a plan without a transfer
// instruction; callers should treat a request with nothing to emit as a
// configuration error upstream.
func AssembleInstructions(
	ctx context.Context,
	ledger clients.Ledger,
	registry *amounts.Registry,
	req *types.PaymentRequest,
	payer solana.PublicKey,
	opts *types.TransactionOptions,
) ([]solana.Instruction, *Summary, error) {
	if opts == nil {
		opts = types.DefaultTransactionOptions()
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		return nil, nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("recipient: %v", err)}
	}
	references, err := parseReferences(req.References)
	if err != nil {
		return nil, nil, err
	}

	var (
		instructions []solana.Instruction
		summary      *Summary
	)
	if req.SplToken == "" {
		instructions, summary, err = assembleNative(req, payer, recipient, references, opts)
	} else {
		instructions, summary, err = assembleToken(ctx, ledger, registry, req, payer, recipient, references, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	if req.Memo != "" {
		instructions = append(instructions, memoInstruction(req.Memo))
	}
	return instructions, summary, nil
}

func assembleNative(
	req *types.PaymentRequest,
	payer, recipient solana.PublicKey,
	references []solana.PublicKey,
	opts *types.TransactionOptions,
) ([]solana.Instruction, *Summary, error) {
	lamports, ok, err := resolveBaseUnits(req, opts, amounts.NativeDecimals)
	if err != nil {
		return nil, nil, err
	}
	summary := &Summary{Decimals: amounts.NativeDecimals}
	if !ok || lamports == 0 {
		return nil, summary, nil
	}

	transfer := system.NewTransferInstruction(lamports, payer, recipient).Build()
	withRefs, err := appendReferences(transfer, references)
	if err != nil {
		return nil, nil, err
	}
	summary.HasTransfer = true
	summary.TransferAmount = lamports
	return []solana.Instruction{withRefs}, summary, nil
}

func assembleToken(
	ctx context.Context,
	ledger clients.Ledger,
	registry *amounts.Registry,
	req *types.PaymentRequest,
	payer, recipient solana.PublicKey,
	references []solana.PublicKey,
	opts *types.TransactionOptions,
) ([]solana.Instruction, *Summary, error) {
	mint, err := solana.PublicKeyFromBase58(req.SplToken)
	if err != nil {
		return nil, nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("splToken: %v", err)}
	}
	if req.Amount == nil && opts.AmountBaseUnits == nil {
		return nil, nil, &types.Error{
			Code:    types.ErrMissingAmount,
			Message: fmt.Sprintf("token transfer for mint %s requires an amount; set request amount or AmountBaseUnits", mint),
		}
	}

	decimals, err := registry.Decimals(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	baseUnits, ok, err := resolveBaseUnits(req, opts, decimals)
	if err != nil {
		return nil, nil, err
	}
	summary := &Summary{Decimals: decimals}
	if !ok || baseUnits == 0 {
		return nil, summary, nil
	}

	payerATA, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("derive payer token account: %v", err)}
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("derive recipient token account: %v", err)}
	}
	summary.RecipientTokenAccount = recipientATA

	var instructions []solana.Instruction
	info, err := ledger.FetchAccountInfo(ctx, recipientATA)
	if err != nil {
		return nil, nil, err
	}
	if info == nil {
		if !opts.AutoCreateRecipientATA {
			return nil, nil, &types.Error{
				Code:    types.ErrAccountNotFound,
				Message: fmt.Sprintf("recipient token account %s does not exist and auto-create is disabled", recipientATA),
			}
		}
		instructions = append(instructions, ata.NewCreateInstruction(payer, recipient, mint).Build())
		summary.CreatesTokenAccount = true
	}

	transfer := token.NewTransferCheckedInstruction(
		baseUnits,
		decimals,
		payerATA,
		mint,
		recipientATA,
		payer,
		nil,
	).Build()
	withRefs, err := appendReferences(transfer, references)
	if err != nil {
		return nil, nil, err
	}
	summary.HasTransfer = true
	summary.TransferAmount = baseUnits
	return append(instructions, withRefs), summary, nil
}

// resolveBaseUnits picks the explicit base-unit override when present,
// otherwise converts the request's decimal amount. The second return is false
// when the request carries no amount at all.
func resolveBaseUnits(req *types.PaymentRequest, opts *types.TransactionOptions, decimals uint8) (uint64, bool, error) {
	if opts.AmountBaseUnits != nil {
		return *opts.AmountBaseUnits, true, nil
	}
	if req.Amount == nil {
		return 0, false, nil
	}
	units, err := amounts.ToBaseUnits(*req.Amount, decimals)
	if err != nil {
		return 0, false, err
	}
	return units, true, nil
}

// appendReferences re-wraps an instruction with every reference key attached
// at the end of its account list as a read-only non-signer, preserving
// request order. References are lookup keys for later discovery, never
// signers.
func appendReferences(inst solana.Instruction, references []solana.PublicKey) (solana.Instruction, error) {
	if len(references) == 0 {
		return inst, nil
	}
	data, err := inst.Data()
	if err != nil {
		return nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("encode instruction data: %v", err)}
	}
	metas := make(solana.AccountMetaSlice, 0, len(inst.Accounts())+len(references))
	metas = append(metas, inst.Accounts()...)
	for _, ref := range references {
		metas = append(metas, &solana.AccountMeta{PublicKey: ref, IsSigner: false, IsWritable: false})
	}
	return solana.NewInstruction(inst.ProgramID(), metas, data), nil
}

// memoInstruction carries the memo bytes verbatim: UTF-8, unmodified, no
// truncation.
func memoInstruction(memo string) solana.Instruction {
	return solana.NewInstruction(MemoProgramID, solana.AccountMetaSlice{}, []byte(memo))
}

func parseReferences(refs []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(refs))
	for i, ref := range refs {
		key, err := solana.PublicKeyFromBase58(ref)
		if err != nil {
			return nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("references[%d]: %v", i, err)}
		}
		out = append(out, key)
	}
	return out, nil
}
