package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"
)

type stubFirebaseVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubFirebaseVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseAuthenticatorMapsClaims(t *testing.T) {
	verifier := &stubFirebaseVerifier{
		token: &firebaseauth.Token{
			UID: "staff-123",
			Claims: map[string]any{
				"email": "marketing@example.com",
				"role":  "marketing, sales",
				"roles": []any{"sales", "viewer"},
				"admin": true,
			},
		},
	}

	user, err := NewFirebaseAuthenticator(verifier).Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), "good-token")
	require.NoError(t, err)
	require.Equal(t, "staff-123", user.UID)
	require.Equal(t, "marketing@example.com", user.Email)
	require.Equal(t, []string{"marketing", "sales", "viewer", "admin"}, user.Roles)
	require.Equal(t, "good-token", user.Token)
}

func TestFirebaseAuthenticatorHandlesExpiredToken(t *testing.T) {
	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{err: ErrTokenExpired})

	_, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), "expired")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonTokenExpired, authErr.Reason)
}

func TestFirebaseAuthenticatorRejectsInvalidToken(t *testing.T) {
	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{err: errors.New("bad signature")})

	_, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), "forged")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonTokenInvalid, authErr.Reason)
}

func TestFirebaseAuthenticatorRejectsMissingToken(t *testing.T) {
	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{})

	_, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), "  ")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonMissingToken, authErr.Reason)
}
