package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveDeviceKey_Deterministic(t *testing.T) {
	secret := []byte("device-secret")
	salt := []byte("salty")

	k1 := DeriveDeviceKey(secret, salt)
	k2 := DeriveDeviceKey(secret, salt)
	require.Equal(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestDeriveDeviceKey_SaltMatters(t *testing.T) {
	secret := []byte("device-secret")
	k1 := DeriveDeviceKey(secret, []byte("salt-a"))
	k2 := DeriveDeviceKey(secret, []byte("salt-b"))
	require.NotEqual(t, k1, k2)
}

func TestSealOpenToken_RoundTrip(t *testing.T) {
	key := DeriveDeviceKey([]byte("s"), []byte("salt"))

	ct, nonce, err := SealToken("token-abc", key)
	require.NoError(t, err)
	require.NotEmpty(t, ct)
	require.Len(t, nonce, 12)

	got, err := OpenToken(ct, nonce, key)
	require.NoError(t, err)
	require.Equal(t, "token-abc", got)
}

func TestOpenToken_WrongKeyFails(t *testing.T) {
	key := DeriveDeviceKey([]byte("s"), []byte("salt"))
	other := DeriveDeviceKey([]byte("s"), []byte("other"))

	ct, nonce, err := SealToken("token-abc", key)
	require.NoError(t, err)

	_, err = OpenToken(ct, nonce, other)
	require.Error(t, err)
}

func TestOpenToken_TamperedCiphertextFails(t *testing.T) {
	key := DeriveDeviceKey([]byte("s"), []byte("salt"))

	ct, nonce, err := SealToken("token-abc", key)
	require.NoError(t, err)

	ct[0] ^= 0xff
	_, err = OpenToken(ct, nonce, key)
	require.Error(t, err)
}
