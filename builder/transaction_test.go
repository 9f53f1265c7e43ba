package builder

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fengzdadi/solana-pay-go/types"
)

func TestBuildTransactionPlan(t *testing.T) {
	f := newFixture(t)
	req := f.request("0.25")
	req.Memo = "order-12"

	plan, err := BuildTransaction(context.Background(), f.ledger, f.registry, req, f.payer, nil)
	require.NoError(t, err)

	assert.Equal(t, f.payer.String(), plan.FeePayer)
	assert.Equal(t, f.ledger.blockhash.String(), plan.RecentBlockhash)
	assert.Equal(t, 2, plan.InstructionsCount)
	assert.False(t, plan.UsesLookupTables)

	// a native transfer from the payer needs exactly the payer's signature
	require.Len(t, plan.SignersRequired, 1)
	assert.Equal(t, f.payer.String(), plan.SignersRequired[0])
	assert.Equal(t, uint64(5000), plan.EstimatedFee)

	tx := new(solana.Transaction)
	require.NoError(t, tx.UnmarshalBase64(plan.Transaction))
	require.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero(), "unsigned plan must carry a placeholder signature")
	assert.True(t, tx.Message.AccountKeys[0].Equals(f.payer))
}

func TestBuildTransactionComputeBudget(t *testing.T) {
	f := newFixture(t)
	req := f.request("1")

	opts := types.DefaultTransactionOptions()
	opts.ComputeUnitLimit = 200_000
	opts.ComputeUnitPrice = 5_000

	plan, err := BuildTransaction(context.Background(), f.ledger, f.registry, req, f.payer, opts)
	require.NoError(t, err)

	// limit + price directives precede the transfer
	assert.Equal(t, 3, plan.InstructionsCount)
	assert.Equal(t, uint32(200_000), plan.ComputeUnits)

	// 5000 base fee plus 200_000 units at 5_000 micro-lamports each
	assert.Equal(t, uint64(5000+1000), plan.EstimatedFee)

	tx := new(solana.Transaction)
	require.NoError(t, tx.UnmarshalBase64(plan.Transaction))

	first := tx.Message.Instructions[0]
	program, err := tx.Message.Program(first.ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, program.Equals(computebudget.ProgramID))
}

func TestBuildTransactionRejectsBadRequest(t *testing.T) {
	f := newFixture(t)
	req := &types.PaymentRequest{Recipient: "nope"}

	_, err := BuildTransaction(context.Background(), f.ledger, f.registry, req, f.payer, nil)
	require.Error(t, err)

	var libErr *types.Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, types.ErrInvalidRequest, libErr.Code)
}
