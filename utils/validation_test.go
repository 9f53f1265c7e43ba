package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	dec, err := ValidateAmount("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", dec.String())

	_, err = ValidateAmount("")
	assert.Error(t, err)

	_, err = ValidateAmount("abc")
	assert.Error(t, err)

	_, err = ValidateAmount("-1")
	assert.Error(t, err)
}

func TestValidatePublicKey(t *testing.T) {
	assert.NoError(t, ValidatePublicKey("GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo"))
	assert.Error(t, ValidatePublicKey(""))
	assert.Error(t, ValidatePublicKey("too-short"))
	assert.Error(t, ValidatePublicKey("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"))
}

func TestValidateSignature(t *testing.T) {
	assert.NoError(t, ValidateSignature("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"))
	assert.Error(t, ValidateSignature(""))
	assert.Error(t, ValidateSignature("GjJy7B25a8CVZpFNhp4VTanNrLHpjrdQihTfV2BWWrvo"))
}

func TestValidateEndpoint(t *testing.T) {
	assert.NoError(t, ValidateEndpoint("https://api.devnet.solana.com"))
	assert.NoError(t, ValidateEndpoint("http://127.0.0.1:8899"))
	assert.Error(t, ValidateEndpoint(""))
	assert.Error(t, ValidateEndpoint("ftp://example.com"))
	assert.Error(t, ValidateEndpoint("https://"))
}

func TestTruncateSignature(t *testing.T) {
	assert.Equal(t, "short", TruncateSignature("short"))
	long := "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
	got := TruncateSignature(long)
	assert.Len(t, got, 19)
	assert.Equal(t, long[:8], got[:8])
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a, b", JoinNonEmpty(", ", "a", "", "b"))
	assert.Equal(t, "", JoinNonEmpty(", ", "", ""))
}
