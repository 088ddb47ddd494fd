package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, tok, secret string) (jwtlib.MapClaims, error) {
	t.Helper()
	parsed, err := jwtlib.Parse(tok, func(*jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	return parsed.Claims.(jwtlib.MapClaims), nil
}

func TestIssue_Claims(t *testing.T) {
	tok, err := Issue("secret", 42, "ADMIN", 1)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := decode(t, tok, "secret")
	require.NoError(t, err)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "ADMIN", claims["role"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))
}

func TestIssue_WrongSecretRejected(t *testing.T) {
	tok, err := Issue("secret", 7, "USER", 1)
	require.NoError(t, err)

	_, err = decode(t, tok, "other-secret")
	require.Error(t, err)
}

func TestIssue_ExpiredTokenRejected(t *testing.T) {
	tok, err := Issue("secret", 7, "USER", -1)
	require.NoError(t, err)

	_, err = decode(t, tok, "secret")
	require.Error(t, err)
}
