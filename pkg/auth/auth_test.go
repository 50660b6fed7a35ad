package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() JWTConfig {
	return JWTConfig{SecretKey: "test-secret", Issuer: "chatter", Audience: []string{DefaultAudience}}
}

func TestJWT_RoundTrip(t *testing.T) {
	gen, err := NewJWTGenerator(testConfig(), time.Hour)
	require.NoError(t, err)
	val, err := NewJWTValidator(testConfig())
	require.NoError(t, err)

	token, err := gen.GenerateToken("user123", "reader")
	require.NoError(t, err)

	claims, err := val.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, []string{"reader"}, claims.Roles)
}

func TestJWT_Rejections(t *testing.T) {
	val, err := NewJWTValidator(testConfig())
	require.NoError(t, err)

	expiredGen, _ := NewJWTGenerator(testConfig(), time.Minute)
	expiredGen.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredGen.GenerateToken("user123")
	require.NoError(t, err)

	otherSecret := testConfig()
	otherSecret.SecretKey = "other"
	forgedGen, _ := NewJWTGenerator(otherSecret, time.Hour)
	forged, _ := forgedGen.GenerateToken("user123")

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"
	issuerGen, _ := NewJWTGenerator(otherIssuer, time.Hour)
	wrongIssuer, _ := issuerGen.GenerateToken("user123")

	otherAudience := testConfig()
	otherAudience.Audience = []string{"elsewhere"}
	audGen, _ := NewJWTGenerator(otherAudience, time.Hour)
	wrongAudience, _ := audGen.GenerateToken("user123")

	noSubjectGen, _ := NewJWTGenerator(testConfig(), time.Hour)
	noSubject, _ := noSubjectGen.GenerateToken("")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong secret", forged, ErrInvalidSignature},
		{"wrong issuer", wrongIssuer, ErrInvalidClaims},
		{"wrong audience", wrongAudience, ErrInvalidClaims},
		{"missing subject", noSubject, ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := val.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJWT_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
	_, err = NewJWTGenerator(JWTConfig{}, time.Hour)
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user123"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user123", user.UserID)
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	// Arrange
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2)
	limiter.now = func() time.Time { return clock }

	// Act & Assert
	assert.True(t, limiter.Allow("alice"))
	assert.True(t, limiter.Allow("alice"))
	assert.False(t, limiter.Allow("alice"))
	assert.True(t, limiter.Allow("bob"))

	clock = clock.Add(30 * time.Second)
	assert.True(t, limiter.Allow("alice"))
}

func TestRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(10)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("alice")
	clock = clock.Add(2 * time.Hour)
	limiter.Allow("bob")

	assert.Equal(t, 1, limiter.Sweep())
	assert.Equal(t, 1, limiter.Len())
}
