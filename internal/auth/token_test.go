package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "student", "secret")
	require.NoError(t, err)

	id, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	require.Equal(t, 42, id.AccountID)
	require.Equal(t, "student", id.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(42, "student", "secret")
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token", "secret")
	require.Error(t, err)
}
