package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = Config{Secret: "test-secret-test-secret-test-secret", Issuer: "queryex"}

func TestVerify_RoundTrip(t *testing.T) {
	tok, err := GenerateToken(testCfg, "jperez", []string{"Ventas", "CN=Compras,OU=G,DC=corp"}, time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier(testCfg).Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "jperez", id.Username)
	assert.Equal(t, []string{"Ventas", "CN=Compras,OU=G,DC=corp"}, id.GroupClaims)
	assert.True(t, id.HasGroupClaims())
}

func TestVerify_NoGroupsClaim(t *testing.T) {
	tok, err := GenerateToken(testCfg, "jperez", nil, time.Hour)
	require.NoError(t, err)

	id, err := NewVerifier(testCfg).Verify(tok)
	require.NoError(t, err)
	assert.False(t, id.HasGroupClaims())
}

func TestVerify_Rejects(t *testing.T) {
	expired, err := GenerateToken(testCfg, "jperez", nil, -time.Minute)
	require.NoError(t, err)

	otherIssuer, err := GenerateToken(Config{Secret: testCfg.Secret, Issuer: "other"}, "jperez", nil, time.Hour)
	require.NoError(t, err)

	wrongSecret, err := GenerateToken(Config{Secret: "another-secret-another-secret-xx", Issuer: "queryex"}, "jperez", nil, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "jperez"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	v := NewVerifier(testCfg)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"expired", expired, ErrExpiredToken},
		{"wrong issuer", otherIssuer, ErrInvalidToken},
		{"wrong secret", wrongSecret, ErrInvalidToken},
		{"alg none", none, ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Nil(t, stringList(nil))
	assert.Equal(t, []string{"a", "b"}, stringList([]any{"a", 1, "b"}))
	assert.Equal(t, []string{"a", "b"}, stringList("a, b,"))
	assert.Equal(t, []string{}, stringList(""))
}
