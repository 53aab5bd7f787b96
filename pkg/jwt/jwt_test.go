package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()
	roles := []string{"agent", "admin"}

	token, err := service.GenerateAccessToken(userID, "agent@flygasal.test", roles)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "agent@flygasal.test", claims.Email)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("owner"))
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()

	token, err := service.GenerateAccessToken(userID, "", nil)
	require.NoError(t, err)

	// Invalid token
	_, err = service.ValidateAccessToken("invalid.token.here")
	assert.Error(t, err)

	// Wrong secret
	_, err = NewService("wrong-secret", time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)

	sign := func(claims Claims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    Issuer,
	}

	// Refresh token presented as access token
	_, err = service.ValidateAccessToken(sign(Claims{UserID: userID, TokenType: RefreshToken, RegisteredClaims: base}, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.ErrorContains(t, err, "invalid token type")

	// Foreign issuer
	foreign := base
	foreign.Issuer = "someone-else"
	_, err = service.ValidateAccessToken(sign(Claims{UserID: userID, TokenType: AccessToken, RegisteredClaims: foreign}, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Error(t, err)

	// Missing user id
	_, err = service.ValidateAccessToken(sign(Claims{TokenType: AccessToken, RegisteredClaims: base}, jwt.SigningMethodHS256, []byte(testSecret)))
	assert.ErrorContains(t, err, "no user id")

	// Unsigned token
	_, err = service.ValidateAccessToken(sign(Claims{UserID: userID, TokenType: AccessToken, RegisteredClaims: base}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType))
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	service := NewService(testSecret, -time.Minute)

	token, err := service.GenerateAccessToken(uuid.New(), "", []string{"agent"})
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
	assert.True(t, service.IsTokenExpired(token))
}

func TestIsTokenExpired(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	token, err := service.GenerateAccessToken(uuid.New(), "", []string{"agent"})
	require.NoError(t, err)

	assert.False(t, service.IsTokenExpired(token))
	assert.True(t, service.IsTokenExpired("invalid.token.here"))
}

func TestExtractClaims(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()

	token, err := service.GenerateAccessToken(userID, "", []string{"agent"})
	require.NoError(t, err)

	claims, err := NewService("other", time.Hour).ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	done := make(chan bool)
	errors := make(chan error, 100)

	for i := 0; i < 100; i++ {
		go func() {
			token, err := service.GenerateAccessToken(uuid.New(), "", []string{"agent"})
			if err != nil {
				errors <- err
				done <- true
				return
			}

			if _, err := service.ValidateAccessToken(token); err != nil {
				errors <- err
			}
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}

	close(errors)
	assert.Empty(t, errors)
}
