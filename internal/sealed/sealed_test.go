package sealed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKM(t *testing.T) *KeyManager {
	t.Helper()
	km, err := NewKeyManager("")
	require.NoError(t, err)
	return km
}

func TestSealOpenRoundTrip(t *testing.T) {
	km := newTestKM(t)

	amount := decimal.RequireFromString("2000000000000000000") // 2 ETH in wei
	h, p, err := km.Seal(amount)
	require.NoError(t, err)
	require.NotEmpty(t, h)
	require.NotEmpty(t, p)

	require.NoError(t, VerifyProof(h, p))

	got, err := km.Open(h)
	require.NoError(t, err)
	assert.True(t, amount.Equal(got))
}

func TestVerifyProofRejectsMismatch(t *testing.T) {
	km := newTestKM(t)

	h1, _, err := km.Seal(decimal.NewFromInt(1))
	require.NoError(t, err)
	_, p2, err := km.Seal(decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.ErrorIs(t, VerifyProof(h1, p2), ErrBadProof)
	assert.ErrorIs(t, VerifyProof(Handle("garbage"), p2), ErrBadHandle)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	km1 := newTestKM(t)
	km2 := newTestKM(t)

	h, _, err := km1.Seal(decimal.NewFromInt(42))
	require.NoError(t, err)

	_, err = km2.Open(h)
	assert.Error(t, err)
}

func TestMaxAndAtLeast(t *testing.T) {
	km := newTestKM(t)

	var handles []Handle
	for _, s := range []string{"100", "2500", "900"} {
		h, _, err := km.Seal(decimal.RequireFromString(s))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	idx, err := km.Max(handles)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	ok, err := km.AtLeast(handles[1], handles[2])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = km.AtLeast(handles[0], handles[2])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = km.Max(nil)
	assert.Error(t, err)
}

func TestFixedKeySurvivesRestart(t *testing.T) {
	const keyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

	km1, err := NewKeyManager(keyHex)
	require.NoError(t, err)
	km2, err := NewKeyManager(keyHex)
	require.NoError(t, err)

	h, _, err := km1.Seal(decimal.NewFromInt(7))
	require.NoError(t, err)

	got, err := km2.Open(h)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(7)))
}

func TestNewKeyManagerRejectsBadKeys(t *testing.T) {
	_, err := NewKeyManager("zz")
	assert.Error(t, err)

	_, err = NewKeyManager("abcd")
	assert.Error(t, err)
}
