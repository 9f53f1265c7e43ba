package builder

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/Fengzdadi/solana-pay-go/amounts"
	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/types"
)

// lamportsPerSignature is the base network fee per required signature.
const lamportsPerSignature = 5000

// BuildTransaction assembles the instruction list for a request and wraps it
// into an unsigned, versioned (v0) transaction plan. The only network touches
// are the account-existence and decimals lookups during assembly and the
// blockhash fetch here.
func BuildTransaction(
	ctx context.Context,
	ledger clients.Ledger,
	registry *amounts.Registry,
	req *types.PaymentRequest,
	payer solana.PublicKey,
	opts *types.TransactionOptions,
) (*types.TransactionPlan, error) {
	if opts == nil {
		opts = types.DefaultTransactionOptions()
	}

	payment, _, err := AssembleInstructions(ctx, ledger, registry, req, payer, opts)
	if err != nil {
		return nil, err
	}

	// Compute-budget directives go ahead of all payment instructions so they
	// apply to the whole transaction.
	var instructions []solana.Instruction
	if opts.ComputeUnitLimit > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(opts.ComputeUnitLimit).Build())
	}
	if opts.ComputeUnitPrice > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(opts.ComputeUnitPrice).Build())
	}
	instructions = append(instructions, payment...)

	blockhash, err := ledger.FetchLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("compile transaction: %v", err)}
	}
	// v0 layout for forward compatibility with lookup tables, even though no
	// table is attached here.
	tx.Message.SetVersion(solana.MessageVersionV0)

	numRequired := int(tx.Message.Header.NumRequiredSignatures)
	tx.Signatures = make([]solana.Signature, numRequired)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, &types.Error{Code: types.ErrInvalidRequest, Message: fmt.Sprintf("serialize transaction: %v", err)}
	}

	signers := make([]string, 0, numRequired)
	for i := 0; i < numRequired && i < len(tx.Message.AccountKeys); i++ {
		signers = append(signers, tx.Message.AccountKeys[i].String())
	}

	fee := uint64(numRequired) * lamportsPerSignature
	if opts.ComputeUnitPrice > 0 && opts.ComputeUnitLimit > 0 {
		// price is micro-lamports per compute unit
		fee += opts.ComputeUnitPrice * uint64(opts.ComputeUnitLimit) / 1_000_000
	}

	return &types.TransactionPlan{
		Transaction:       base64.StdEncoding.EncodeToString(raw),
		FeePayer:          payer.String(),
		RecentBlockhash:   blockhash.String(),
		SignersRequired:   signers,
		InstructionsCount: len(instructions),
		EstimatedFee:      fee,
		UsesLookupTables:  false,
		ComputeUnits:      opts.ComputeUnitLimit,
	}, nil
}
