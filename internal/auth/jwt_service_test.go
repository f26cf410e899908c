package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kintai/internal/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(ttl time.Duration, clock *fakeClock) *TokenService {
	return NewTokenServiceWithClock(&config.Config{JWTSecret: "test-secret", TokenTTL: ttl}, clock.Now)
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 500_000_000, time.UTC)}

	for _, ttl := range []time.Duration{0, time.Second, time.Hour, 30 * 24 * time.Hour} {
		for _, tc := range []struct {
			identity string
			admin    bool
		}{{"alice", false}, {"root", true}, {"名前", false}} {
			svc := newTestService(ttl, clock)
			tok, err := svc.Issue(tc.identity, tc.admin)
			require.NoError(t, err)
			assert.Equal(t, "bearer", tok.TokenType)

			claims, ok := svc.Verify("Bearer " + tok.Token)
			require.True(t, ok, "ttl=%s identity=%s", ttl, tc.identity)
			assert.Equal(t, tc.identity, claims.User)
			assert.Equal(t, tc.admin, claims.Admin)
			assert.NotEmpty(t, claims.ID)
			assert.Equal(t, claims.IssuedAt.Add(ttl).Unix(), claims.ExpiresAt.Unix())
		}
	}
}

func TestTokenService_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(time.Minute, clock)

	tok, err := svc.Issue("alice", false)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, ok := svc.Verify("Bearer " + tok.Token)
	assert.True(t, ok, "valid up to and including exp")

	clock.Advance(time.Second)
	_, ok = svc.Verify("Bearer " + tok.Token)
	assert.False(t, ok, "rejected once clock is past exp")

	clock.Advance(24 * time.Hour)
	_, ok = svc.Verify("Bearer " + tok.Token)
	assert.False(t, ok)
}

func TestTokenService_ExpiryIsExact(t *testing.T) {
	tests := []struct {
		name     string
		issuedAt time.Time
	}{
		{"whole second", time.Unix(1_700_000_000, 0).UTC()},
		{"fractional second", time.Unix(1_700_000_000, 250_000_000).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: tt.issuedAt}
			svc := newTestService(time.Minute, clock)

			tok, err := svc.Issue("alice", false)
			require.NoError(t, err)
			claims, ok := svc.Verify("Bearer " + tok.Token)
			require.True(t, ok, "valid when issued")
			assert.False(t, claims.IssuedAt.Time.Before(tt.issuedAt), "iat never precedes issuance")
			exp := claims.IssuedAt.Time.Add(time.Minute)
			assert.True(t, exp.Equal(claims.ExpiresAt.Time))
			assert.True(t, exp.Equal(tok.ExpiresAt))

			for _, past := range []time.Duration{time.Nanosecond, time.Millisecond, 500 * time.Millisecond, 999 * time.Millisecond} {
				clock.t = exp.Add(past)
				_, ok := svc.Verify("Bearer " + tok.Token)
				assert.False(t, ok, "exp+%s", past)
			}

			clock.t = exp
			_, ok = svc.Verify("Bearer " + tok.Token)
			assert.True(t, ok, "valid at exp")
		})
	}
}

func TestTokenService_HeaderParsing(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(time.Hour, clock)
	tok, err := svc.Issue("alice", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"canonical", "Bearer " + tok.Token, true},
		{"lower case", "bearer " + tok.Token, true},
		{"upper case", "BEARER " + tok.Token, true},
		{"surrounding space", "  Bearer " + tok.Token + " ", true},
		{"no scheme", tok.Token, false},
		{"basic scheme", "Basic " + tok.Token, false},
		{"empty", "", false},
		{"scheme only", "Bearer", false},
		{"scheme and space", "Bearer ", false},
		{"two tokens", "Bearer " + tok.Token + " " + tok.Token, false},
		{"garbage", "Bearer not.a.jwt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := svc.Verify(tt.header)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestTokenService_RejectsForeignSignatures(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(time.Hour, clock)
	other := NewTokenServiceWithClock(&config.Config{JWTSecret: "other-secret", TokenTTL: time.Hour}, clock.Now)

	tok, err := other.Issue("root", true)
	require.NoError(t, err)
	_, ok := svc.Verify("Bearer " + tok.Token)
	assert.False(t, ok, "key rotation invalidates outstanding tokens")

	// Tampered payload keeps the old signature.
	own, err := svc.Issue("alice", false)
	require.NoError(t, err)
	parts := strings.Split(own.Token, ".")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{User: "alice", Admin: true}).SignedString([]byte("x"))
	require.NoError(t, err)
	parts[1] = strings.Split(forged, ".")[1]
	_, ok = svc.Verify("Bearer " + strings.Join(parts, "."))
	assert.False(t, ok)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(time.Hour, clock)

	claims := &Claims{
		User: "root", Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(clock.t),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok := svc.Verify("Bearer " + none)
	assert.False(t, ok)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, ok = svc.Verify("Bearer " + hs512)
	assert.False(t, ok)
}

func TestTokenService_RejectsMissingClaims(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(time.Hour, clock)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		User:             "alice",
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(clock.t)},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, ok := svc.Verify("Bearer " + noExp)
	assert.False(t, ok)
}
