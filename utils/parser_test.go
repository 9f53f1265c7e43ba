package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fengzdadi/solana-pay-go/types"
)

func TestParsePaymentRequest(t *testing.T) {
	data := []byte(`{
		"recipient": "GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo",
		"amount": "9.99",
		"splToken": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"references": ["4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"],
		"label": "Store",
		"memo": "order-1"
	}`)

	req, err := ParsePaymentRequest(data)
	require.NoError(t, err)
	assert.Equal(t, "GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo", req.Recipient)
	require.NotNil(t, req.Amount)
	assert.Equal(t, "9.99", req.Amount.String())
	assert.Len(t, req.References, 1)
}

func TestParsePaymentRequestRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not json":          `{`,
		"missing recipient": `{"amount": "1"}`,
		"bad recipient":     `{"recipient": "nope"}`,
		"negative amount":   `{"recipient": "GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo", "amount": "-1"}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePaymentRequest([]byte(data))
			require.Error(t, err)
			var libErr *types.Error
			require.ErrorAs(t, err, &libErr)
			assert.Equal(t, types.ErrInvalidRequest, libErr.Code)
		})
	}
}

func TestParseValidationConfig(t *testing.T) {
	data := []byte(`{
		"strictAmount": true,
		"requireMemo": true,
		"strictReferenceOrder": true,
		"allowExtraInstructions": false,
		"maxWait": 60000000000,
		"commitment": "finalized"
	}`)

	cfg, err := ParseValidationConfig(data)
	require.NoError(t, err)
	assert.True(t, cfg.RequireMemo)
	assert.Equal(t, types.CommitmentFinalized, cfg.Commitment)
}

func TestParseValidationConfigRejectsBadCommitment(t *testing.T) {
	_, err := ParseValidationConfig([]byte(`{"maxWait": 1000000000, "commitment": "eventually"}`))
	require.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"cluster": "devnet", "logLevel": "debug"}`))
	require.NoError(t, err)
	assert.Equal(t, types.ClusterDevnet, cfg.Cluster)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSerializeRoundTrip(t *testing.T) {
	req := &types.PaymentRequest{
		Recipient: "GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo",
		Memo:      "order-2",
	}
	data, err := SerializePaymentRequest(req)
	require.NoError(t, err)

	back, err := ParsePaymentRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req.Recipient, back.Recipient)
	assert.Equal(t, req.Memo, back.Memo)
}

func TestCompactAndNormalizeJSON(t *testing.T) {
	compact, err := CompactJSON([]byte(`{ "a" : 1 }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(compact))

	pretty, err := NormalizeJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n")
}
