package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT() *JWTManager {
	return NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour, "test")
}

func TestJWTManager_IssueVerify(t *testing.T) {
	m := newTestJWT()

	access, aexp, err := m.Issue("u1", AccessToken)
	require.NoError(t, err)
	refresh, rexp, err := m.Issue("u1", RefreshToken)
	require.NoError(t, err)
	assert.True(t, rexp.After(aexp))

	ac, err := m.Verify(access, AccessToken)
	require.NoError(t, err)
	rc, err := m.Verify(refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", ac.UserID)
	assert.Equal(t, ac.UserID, rc.UserID)
}

func TestJWTManager_KindsAreNotInterchangeable(t *testing.T) {
	m := newTestJWT()

	access, _, err := m.Issue("u1", AccessToken)
	require.NoError(t, err)
	refresh, _, err := m.Issue("u1", RefreshToken)
	require.NoError(t, err)

	_, err = m.Verify(access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Verify(refresh, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_SameSecretStillChecksKind(t *testing.T) {
	m := NewJWTManager("shared", "shared", time.Minute, time.Hour, "")

	access, _, err := m.Issue("u1", AccessToken)
	require.NoError(t, err)

	_, err = m.Verify(access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Expired(t *testing.T) {
	m := newTestJWT()
	issuedAt := time.Now().Add(-time.Hour)
	m.Now = func() time.Time { return issuedAt }

	access, _, err := m.Issue("u1", AccessToken)
	require.NoError(t, err)

	m.Now = time.Now
	_, err = m.Verify(access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Tampered(t *testing.T) {
	m := newTestJWT()
	other := NewJWTManager("other-access", "other-refresh", time.Minute, time.Hour, "test")

	forged, _, err := other.Issue("u1", RefreshToken)
	require.NoError(t, err)

	_, err = m.Verify(forged, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Verify("not.a.jwt", RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_TokensAreUnique(t *testing.T) {
	m := newTestJWT()
	fixed := time.Now()
	m.Now = func() time.Time { return fixed }

	a, _, err := m.Issue("u1", RefreshToken)
	require.NoError(t, err)
	b, _, err := m.Issue("u1", RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
