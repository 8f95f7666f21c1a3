package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	Configure("unit-test-secret", time.Minute)

	tok, err := GenerateJWT("member-1", string(RoleMember), "chat_service")
	require.NoError(t, err)

	claims, err := ParseJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.MemberID)
	assert.Equal(t, string(RoleMember), claims.Role)
	assert.Equal(t, "chat_service", claims.Issuer)

	claims, err = ParseJWT("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.MemberID)
}

func TestParseJWT_Rejects(t *testing.T) {
	Configure("unit-test-secret", time.Minute)

	_, err := ParseJWT("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseJWT("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{MemberID: "m"})
	signed, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		MemberID: "m",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err = expired.SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
