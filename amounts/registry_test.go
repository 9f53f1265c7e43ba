package amounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/types"
)

// decimalsLedger serves only mint-decimals lookups and counts them.
type decimalsLedger struct {
	decimals map[solana.PublicKey]uint8
	fetches  int
}

func (l *decimalsLedger) FetchTokenDecimals(_ context.Context, mint solana.PublicKey) (uint8, error) {
	l.fetches++
	d, ok := l.decimals[mint]
	if !ok {
		return 0, fmt.Errorf("unknown mint %s", mint)
	}
	return d, nil
}

func (l *decimalsLedger) FetchTransaction(context.Context, solana.Signature, types.Commitment) (*clients.ConfirmedTransaction, error) {
	return nil, nil
}
func (l *decimalsLedger) FetchSignatureStatus(context.Context, solana.Signature) (*clients.SignatureStatus, error) {
	return nil, nil
}
func (l *decimalsLedger) FetchAccountInfo(context.Context, solana.PublicKey) (*clients.AccountInfo, error) {
	return nil, nil
}
func (l *decimalsLedger) FetchLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func TestRegistryCachesDecimals(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	ledger := &decimalsLedger{decimals: map[solana.PublicKey]uint8{mint: 6}}

	reg, err := NewRegistry(ledger, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d, err := reg.Decimals(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, uint8(6), d)
	}
	assert.Equal(t, 1, ledger.fetches, "decimals should be fetched once and cached")
}

func TestRegistryErrorNotCached(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	ledger := &decimalsLedger{decimals: map[solana.PublicKey]uint8{}}

	reg, err := NewRegistry(ledger, 4)
	require.NoError(t, err)

	_, err = reg.Decimals(context.Background(), mint)
	require.Error(t, err)

	ledger.decimals[mint] = 9
	d, err := reg.Decimals(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), d)
	assert.Equal(t, 2, ledger.fetches)
}

func TestRegistryEvictsBeyondCapacity(t *testing.T) {
	ledger := &decimalsLedger{decimals: map[solana.PublicKey]uint8{}}
	reg, err := NewRegistry(ledger, 2)
	require.NoError(t, err)

	mints := make([]solana.PublicKey, 3)
	for i := range mints {
		mints[i] = solana.NewWallet().PublicKey()
		ledger.decimals[mints[i]] = uint8(i)
	}
	for _, m := range mints {
		_, err := reg.Decimals(context.Background(), m)
		require.NoError(t, err)
	}
	// first mint was evicted, so it is fetched again
	_, err = reg.Decimals(context.Background(), mints[0])
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.fetches)
}
