// Package verification independently checks a confirmed transaction against
// the original payment request. A mismatch is a normal business outcome
// carried in the result, never an error: every enabled dimension is checked
// against the same immutable snapshot, with no short-circuiting, so one pass
// reports every applicable problem.
package verification

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/Fengzdadi/solana-pay-go/amounts"
	"github.com/Fengzdadi/solana-pay-go/builder"
	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/types"
)

const (
	systemTransferIndex        = 2  // system program instruction tag
	tokenTransferOpcode        = 3  // SPL token Transfer
	tokenTransferCheckedOpcode = 12 // SPL token TransferChecked
)

// Validate checks a landed transaction against the request under the given
// config and returns a fully constructed, immutable result. It performs no
// network reads.
func Validate(snapshot *clients.ConfirmedTransaction, req *types.PaymentRequest, cfg *types.ValidationConfig) *types.ValidationResult {
	if cfg == nil {
		cfg = types.DefaultValidationConfig()
	}

	result := &types.ValidationResult{
		RecipientMatch:  true,
		AmountMatch:     true,
		MemoMatch:       true,
		ReferencesMatch: true,
		TokenMatch:      true,
		Status:          types.StatusConfirmed,
		Signature:       snapshot.Signature.String(),
		BlockTime:       snapshot.BlockTime,
		Slot:            snapshot.Slot,
	}
	if snapshot.Failed {
		result.Status = types.StatusFailedOnChain
		result.Errors = append(result.Errors, fmt.Sprintf("transaction failed on-chain: %s", snapshot.FailureDetail))
		result.IsValid = false
		return result
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("recipient: invalid public key %q", req.Recipient))
		result.RecipientMatch = false
		result.IsValid = false
		return result
	}

	var mint solana.PublicKey
	isToken := req.SplToken != ""
	if isToken {
		mint, err = solana.PublicKeyFromBase58(req.SplToken)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("splToken: invalid public key %q", req.SplToken))
			result.TokenMatch = false
			result.IsValid = false
			return result
		}
	}

	transferIx := findTransferInstruction(snapshot, recipient, mint, isToken)

	checkRecipient(snapshot, result, recipient, mint, isToken)
	checkToken(snapshot, result, recipient, mint, isToken)
	checkAmount(snapshot, result, req, cfg, recipient, mint, isToken)
	checkMemo(snapshot, result, req, cfg)
	checkReferences(result, req, cfg, transferIx)
	extrasOK := checkExtraInstructions(snapshot, result, cfg, transferIx, recipient, mint, isToken)

	// Overall validity is the AND of the mandatory dimensions only.
	result.IsValid = result.RecipientMatch &&
		result.TokenMatch &&
		extrasOK &&
		(req.Amount == nil || result.AmountMatch) &&
		(!cfg.RequireMemo || result.MemoMatch) &&
		(!cfg.RequireReferences || result.ReferencesMatch)
	return result
}

// findTransferInstruction locates the payment's transfer instruction: the
// system transfer paying the recipient, or the token transfer landing in the
// recipient's derived token account.
func findTransferInstruction(snapshot *clients.ConfirmedTransaction, recipient, mint solana.PublicKey, isToken bool) *clients.InstructionView {
	var fallback *clients.InstructionView
	for i := range snapshot.Instructions {
		ix := &snapshot.Instructions[i]
		if isToken {
			if !ix.ProgramID.Equals(solana.TokenProgramID) || len(ix.Data) == 0 {
				continue
			}
			if ix.Data[0] != tokenTransferOpcode && ix.Data[0] != tokenTransferCheckedOpcode {
				continue
			}
			if fallback == nil {
				fallback = ix
			}
			dest := tokenTransferDestination(ix)
			if ata, _, err := solana.FindAssociatedTokenAddress(recipient, mint); err == nil && dest.Equals(ata) {
				return ix
			}
			continue
		}
		if !ix.ProgramID.Equals(solana.SystemProgramID) || len(ix.Data) < 4 {
			continue
		}
		if binary.LittleEndian.Uint32(ix.Data[:4]) != systemTransferIndex {
			continue
		}
		if fallback == nil {
			fallback = ix
		}
		if len(ix.Accounts) >= 2 && ix.Accounts[1].Equals(recipient) {
			return ix
		}
	}
	return fallback
}

func tokenTransferDestination(ix *clients.InstructionView) solana.PublicKey {
	// Transfer: source, destination, owner. TransferChecked: source, mint,
	// destination, owner.
	if len(ix.Data) > 0 && ix.Data[0] == tokenTransferCheckedOpcode {
		if len(ix.Accounts) >= 3 {
			return ix.Accounts[2]
		}
		return solana.PublicKey{}
	}
	if len(ix.Accounts) >= 2 {
		return ix.Accounts[1]
	}
	return solana.PublicKey{}
}

// checkRecipient verifies money actually arrived at the recipient: a positive
// lamport delta for native transfers, an owned token account for SPL.
func checkRecipient(snapshot *clients.ConfirmedTransaction, result *types.ValidationResult, recipient, mint solana.PublicKey, isToken bool) {
	if isToken {
		if _, ok := snapshot.TokenBalanceFor(recipient, mint); !ok {
			result.RecipientMatch = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("recipient mismatch: no token account owned by %s for mint %s in transaction", recipient, mint))
		}
		return
	}
	delta, ok := snapshot.LamportsDelta(recipient)
	if !ok {
		result.RecipientMatch = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("recipient mismatch: %s does not appear in transaction accounts", recipient))
		return
	}
	if delta <= 0 {
		result.RecipientMatch = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("recipient mismatch: balance of %s changed by %d lamports, expected an increase", recipient, delta))
	}
}

// checkToken verifies the token identity of an SPL payment.
func checkToken(snapshot *clients.ConfirmedTransaction, result *types.ValidationResult, recipient, mint solana.PublicKey, isToken bool) {
	if !isToken {
		return
	}
	tb, ok := snapshot.TokenBalanceFor(recipient, mint)
	if !ok || !tb.Mint.Equals(mint) {
		result.TokenMatch = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("token mismatch: expected mint %s for recipient %s", mint, recipient))
	}
}

// checkAmount compares the recipient-side balance delta against the expected
// amount. Deltas are used instead of instruction arguments because they are
// immune to instruction-encoding variations.
func checkAmount(snapshot *clients.ConfirmedTransaction, result *types.ValidationResult, req *types.PaymentRequest, cfg *types.ValidationConfig, recipient, mint solana.PublicKey, isToken bool) {
	if req.Amount == nil {
		return
	}

	var (
		delta    int64
		ok       bool
		decimals uint8
	)
	if isToken {
		delta, ok = snapshot.TokenDelta(recipient, mint)
		if tb, found := snapshot.TokenBalanceFor(recipient, mint); found {
			decimals = tb.Decimals
		}
	} else {
		delta, ok = snapshot.LamportsDelta(recipient)
		decimals = amounts.NativeDecimals
	}
	if !ok {
		result.AmountMatch = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("amount mismatch: expected %s, but no balance change observed for %s", req.Amount, recipient))
		return
	}

	actual := amounts.ToDecimal(uint64(max64(delta, 0)), decimals)
	if delta < 0 {
		actual = amounts.ToDecimal(uint64(-delta), decimals).Neg()
	}

	if cfg.StrictAmount {
		if !actual.Equal(*req.Amount) {
			result.AmountMatch = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("amount mismatch: expected %s, got %s", req.Amount, actual))
		}
		return
	}
	if actual.Sub(*req.Amount).Abs().Cmp(cfg.AmountTolerance) > 0 {
		result.AmountMatch = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("amount outside tolerance: expected %s +/- %s, got %s", req.Amount, cfg.AmountTolerance, actual))
	}
}

// checkMemo verifies the on-chain memo. With no memo expected and none
// required, the check is skipped entirely regardless of what is present.
func checkMemo(snapshot *clients.ConfirmedTransaction, result *types.ValidationResult, req *types.PaymentRequest, cfg *types.ValidationConfig) {
	if req.Memo == "" && !cfg.RequireMemo {
		return
	}

	var found bool
	if req.Memo == "" {
		// Config demands a memo but the request named none: any memo
		// instruction satisfies the requirement.
		for _, ix := range snapshot.Instructions {
			if ix.ProgramID.Equals(builder.MemoProgramID) && len(ix.Data) > 0 {
				found = true
				break
			}
		}
		if !found {
			result.MemoMatch = false
			result.Errors = append(result.Errors, "memo mismatch: a memo is required but the transaction carries none")
		}
		return
	}

	want := []byte(req.Memo)
	for _, ix := range snapshot.Instructions {
		if ix.ProgramID.Equals(builder.MemoProgramID) && bytes.Equal(ix.Data, want) {
			found = true
			break
		}
	}
	if !found {
		// Some RPC encodings expose the memo only through program logs.
		for _, log := range snapshot.LogMessages {
			if strings.Contains(log, req.Memo) {
				found = true
				break
			}
		}
	}
	if !found {
		result.MemoMatch = false
		msg := fmt.Sprintf("memo mismatch: expected %q, not found in transaction", req.Memo)
		if cfg.RequireMemo {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}
}

// checkReferences verifies that every expected reference key is attached to
// the transfer instruction, and that their relative order matches the request
// when order-significance is enabled.
func checkReferences(result *types.ValidationResult, req *types.PaymentRequest, cfg *types.ValidationConfig, transferIx *clients.InstructionView) {
	if len(req.References) == 0 {
		return
	}

	report := func(msg string) {
		result.ReferencesMatch = false
		if cfg.RequireReferences {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}

	if transferIx == nil {
		report("references mismatch: transaction has no transfer instruction to carry references")
		return
	}

	positions := make([]int, 0, len(req.References))
	var missing []string
	for _, ref := range req.References {
		key, err := solana.PublicKeyFromBase58(ref)
		if err != nil {
			report(fmt.Sprintf("references mismatch: invalid reference key %q", ref))
			return
		}
		pos := -1
		for i, account := range transferIx.Accounts {
			if account.Equals(key) {
				pos = i
				break
			}
		}
		if pos < 0 {
			missing = append(missing, ref)
			continue
		}
		positions = append(positions, pos)
	}
	if len(missing) > 0 {
		report(fmt.Sprintf("references mismatch: missing %s on transfer instruction", strings.Join(missing, ", ")))
		return
	}
	if cfg.StrictReferenceOrder {
		for i := 1; i < len(positions); i++ {
			if positions[i] <= positions[i-1] {
				report("references mismatch: reference keys present but out of request order")
				return
			}
		}
	}
}

// checkExtraInstructions guards against transactions smuggling unrelated
// side-effects next to the payment. The expected set is narrow: the compute
// budget pair, an optional create of the recipient's token account, the one
// transfer paying the recipient, and an optional memo. Anything beyond that
// is surplus even when it comes from an otherwise expected program, so a
// second system transfer or a stray token approval does not slip through.
func checkExtraInstructions(snapshot *clients.ConfirmedTransaction, result *types.ValidationResult, cfg *types.ValidationConfig, transferIx *clients.InstructionView, recipient, mint solana.PublicKey, isToken bool) bool {
	var (
		surplus []string
		budget  int
		memos   int
		creates int
	)
	for i := range snapshot.Instructions {
		ix := &snapshot.Instructions[i]
		if ix == transferIx {
			continue
		}
		switch {
		case ix.ProgramID.Equals(computebudget.ProgramID):
			// One unit-limit plus one unit-price instruction.
			if budget++; budget <= 2 {
				continue
			}
		case ix.ProgramID.Equals(builder.MemoProgramID):
			if memos++; memos <= 1 {
				continue
			}
		case isToken && ix.ProgramID.Equals(solana.SPLAssociatedTokenAccountProgramID):
			if creates++; creates <= 1 && createsRecipientTokenAccount(ix, recipient, mint) {
				continue
			}
		}
		surplus = append(surplus, ix.ProgramID.String())
	}
	if len(surplus) == 0 {
		return true
	}
	msg := fmt.Sprintf("unexpected extra instructions from programs: %s", strings.Join(surplus, ", "))
	if cfg.AllowExtraInstructions {
		result.Warnings = append(result.Warnings, msg)
		return true
	}
	result.Errors = append(result.Errors, msg)
	return false
}

// createsRecipientTokenAccount reports whether an associated-token-account
// instruction creates the recipient's account for the paid mint. Create lists
// the funder first and the associated account second.
func createsRecipientTokenAccount(ix *clients.InstructionView, recipient, mint solana.PublicKey) bool {
	ata, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return false
	}
	return len(ix.Accounts) >= 2 && ix.Accounts[1].Equals(ata)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
