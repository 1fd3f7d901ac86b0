package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuerRejectsWeakSecrets(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenIssuer("short", time.Hour)
	assert.ErrorContains(t, err, "at least 32")

	_, err = NewTokenIssuer(testSecret, 0)
	assert.Error(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	issuer := newIssuer(t)

	token, err := issuer.GenerateJWT("player1", "ada")
	require.NoError(t, err)

	claims, err := issuer.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "player1", claims.PlayerID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "player1", claims.Subject)
}

func TestGenerateRequiresPlayer(t *testing.T) {
	_, err := newIssuer(t).GenerateJWT("", "")
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	issuer := newIssuer(t)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.GenerateJWT("player1", "")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ValidateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, err := newIssuer(t).GenerateJWT("player1", "")
	require.NoError(t, err)

	other, err := NewTokenIssuer(strings.Repeat("z", 32), time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PlayerID: "player1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newIssuer(t).ValidateJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
