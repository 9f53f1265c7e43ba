package solanapay

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/types"
)

// memoryLedger is an in-memory Ledger for driving the client without RPC.
type memoryLedger struct {
	accounts     map[solana.PublicKey]*clients.AccountInfo
	decimals     map[solana.PublicKey]uint8
	statuses     map[solana.Signature]*clients.SignatureStatus
	transactions map[solana.Signature]*clients.ConfirmedTransaction
	blockhash    solana.Hash
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		accounts:     make(map[solana.PublicKey]*clients.AccountInfo),
		decimals:     make(map[solana.PublicKey]uint8),
		statuses:     make(map[solana.Signature]*clients.SignatureStatus),
		transactions: make(map[solana.Signature]*clients.ConfirmedTransaction),
	}
}

func (l *memoryLedger) FetchTransaction(_ context.Context, sig solana.Signature, _ types.Commitment) (*clients.ConfirmedTransaction, error) {
	return l.transactions[sig], nil
}
func (l *memoryLedger) FetchSignatureStatus(_ context.Context, sig solana.Signature) (*clients.SignatureStatus, error) {
	return l.statuses[sig], nil
}
func (l *memoryLedger) FetchAccountInfo(_ context.Context, address solana.PublicKey) (*clients.AccountInfo, error) {
	return l.accounts[address], nil
}
func (l *memoryLedger) FetchTokenDecimals(_ context.Context, mint solana.PublicKey) (uint8, error) {
	return l.decimals[mint], nil
}
func (l *memoryLedger) FetchLatestBlockhash(context.Context) (solana.Hash, error) {
	return l.blockhash, nil
}

func newTestClient(t *testing.T, ledger *memoryLedger) *Client {
	t.Helper()
	client, err := New(&types.Config{
		Cluster:      types.ClusterDevnet,
		PollInterval: time.Millisecond,
	}, WithLedger(ledger))
	require.NoError(t, err)
	return client
}

const (
	testPayer     = "9aE476sH92Vz7DMPyq5WLPkrKWivxeuTKEFKd2sZZcde"
	testRecipient = "GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo"
	testSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
)

func landedNativePayment(lamports uint64) *clients.ConfirmedTransaction {
	payer := solana.MustPublicKeyFromBase58(testPayer)
	recipient := solana.MustPublicKeyFromBase58(testRecipient)

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], 2)
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return &clients.ConfirmedTransaction{
		Signature:   solana.MustSignatureFromBase58(testSignature),
		Slot:        42,
		AccountKeys: []solana.PublicKey{payer, recipient, solana.SystemProgramID},
		Instructions: []clients.InstructionView{{
			ProgramID: solana.SystemProgramID,
			Accounts:  []solana.PublicKey{payer, recipient},
			Data:      data,
		}},
		PreBalances:  []uint64{2_000_000_000, 0, 1},
		PostBalances: []uint64{2_000_000_000 - lamports - 5000, lamports, 1},
		Fee:          5000,
	}
}

func TestClientBuild(t *testing.T) {
	client := newTestClient(t, newMemoryLedger())

	req := &types.PaymentRequest{
		Recipient: testRecipient,
		Amount:    MustDecimalFromString("0.25"),
		Memo:      "order-3",
	}
	plan, err := client.Build(context.Background(), req, testPayer, nil)
	require.NoError(t, err)

	assert.Equal(t, testPayer, plan.FeePayer)
	assert.Equal(t, 2, plan.InstructionsCount)
	assert.NotEmpty(t, plan.Transaction)
}

func TestClientBuildAndValidateSmallNativePayment(t *testing.T) {
	ledger := newMemoryLedger()
	client := newTestClient(t, ledger)

	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("0.01")}
	plan, err := client.Build(context.Background(), req, testPayer, nil)
	require.NoError(t, err)
	require.Equal(t, 1, plan.InstructionsCount, "a plain payment is a single transfer")

	tx := new(solana.Transaction)
	require.NoError(t, tx.UnmarshalBase64(plan.Transaction))
	data := tx.Message.Instructions[0].Data
	assert.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[4:12]))

	// the same amount landing on-chain validates cleanly
	sig := solana.MustSignatureFromBase58(testSignature)
	ledger.transactions[sig] = landedNativePayment(10_000_000)

	result, err := client.ValidateTransaction(context.Background(), testSignature, req, nil)
	require.NoError(t, err)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.True(t, result.AmountMatch)
}

func TestClientBuildRejectsBadPayer(t *testing.T) {
	client := newTestClient(t, newMemoryLedger())

	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("1")}
	_, err := client.Build(context.Background(), req, "not-a-key", nil)
	require.Error(t, err)

	var libErr *types.Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, types.ErrInvalidRequest, libErr.Code)
}

func TestClientWaitAndVerify(t *testing.T) {
	ledger := newMemoryLedger()
	sig := solana.MustSignatureFromBase58(testSignature)
	ledger.statuses[sig] = &clients.SignatureStatus{Slot: 42, Commitment: types.CommitmentConfirmed}
	ledger.transactions[sig] = landedNativePayment(250_000_000)

	client := newTestClient(t, ledger)
	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("0.25")}

	result, err := client.WaitAndVerify(context.Background(), testSignature, req, nil)
	require.NoError(t, err)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.Equal(t, types.StatusConfirmed, result.Status)
}

func TestClientWaitAndVerifyTimeout(t *testing.T) {
	client := newTestClient(t, newMemoryLedger())

	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("1")}
	cfg := types.DefaultValidationConfig()
	cfg.MaxWait = 20 * time.Millisecond

	result, err := client.WaitAndVerify(context.Background(), testSignature, req, cfg)
	require.NoError(t, err, "a timeout is an outcome, not an error")
	assert.Equal(t, types.StatusTimedOut, result.Status)
	assert.False(t, result.IsValid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "timed out")
}

func TestClientWaitAndVerifyFailedOnChain(t *testing.T) {
	ledger := newMemoryLedger()
	sig := solana.MustSignatureFromBase58(testSignature)
	ledger.statuses[sig] = &clients.SignatureStatus{
		Failed:        true,
		FailureDetail: "custom program error: 0x1",
	}

	client := newTestClient(t, ledger)
	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("1")}

	result, err := client.WaitAndVerify(context.Background(), testSignature, req, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailedOnChain, result.Status)
	assert.False(t, result.IsValid)
}

func TestClientValidateTransaction(t *testing.T) {
	ledger := newMemoryLedger()
	sig := solana.MustSignatureFromBase58(testSignature)
	ledger.transactions[sig] = landedNativePayment(1_000_000_000)

	client := newTestClient(t, ledger)
	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("1")}

	result, err := client.ValidateTransaction(context.Background(), testSignature, req, nil)
	require.NoError(t, err)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
}

func TestClientValidateTransactionNotFound(t *testing.T) {
	client := newTestClient(t, newMemoryLedger())

	req := &types.PaymentRequest{Recipient: testRecipient, Amount: MustDecimalFromString("1")}
	result, err := client.ValidateTransaction(context.Background(), testSignature, req, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotFound, result.Status)
	assert.False(t, result.IsValid)
}

func TestClientStatus(t *testing.T) {
	ledger := newMemoryLedger()
	sig := solana.MustSignatureFromBase58(testSignature)
	ledger.statuses[sig] = &clients.SignatureStatus{Slot: 7, Commitment: types.CommitmentProcessed}

	client := newTestClient(t, ledger)
	status, err := client.Status(context.Background(), testSignature)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, uint64(7), status.Slot)

	_, err = client.Status(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(&types.Config{RPCUrl: "ftp://nope"})
	require.Error(t, err)

	var libErr *types.Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, types.ErrConfig, libErr.Code)
}

func TestWaitAndVerifyRejectsBadSignature(t *testing.T) {
	client := newTestClient(t, newMemoryLedger())
	req := &types.PaymentRequest{Recipient: testRecipient}

	_, err := client.WaitAndVerify(context.Background(), "bogus", req, nil)
	require.Error(t, err)
}

func TestDecimalFromString(t *testing.T) {
	d, err := DecimalFromString("0.5")
	require.NoError(t, err)
	assert.Equal(t, "0.5", d.String())

	// a typo must surface as an error, never as a zero amount
	_, err = DecimalFromString("0.5O")
	require.Error(t, err)

	var libErr *types.Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, types.ErrInvalidRequest, libErr.Code)

	assert.Panics(t, func() { MustDecimalFromString("0.5O") })
}
