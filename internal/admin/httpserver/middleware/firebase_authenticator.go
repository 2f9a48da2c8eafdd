package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired is returned when the Firebase token has expired.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier is the slice of the Firebase Admin auth client used here.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator validates Firebase ID tokens and maps their custom
// claims onto a User.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies token. Roles come from the "role" and "roles" claims;
// a boolean "admin" claim grants the admin role.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) || errors.Is(err, ErrTokenExpired) {
			return nil, NewAuthError(ReasonTokenExpired, err)
		}
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	roles := claimStrings(verified.Claims["role"], verified.Claims["roles"])
	if isAdmin, _ := verified.Claims["admin"].(bool); isAdmin {
		roles = appendUnique(roles, "admin")
	}

	return &User{
		UID:   verified.UID,
		Email: claimString(verified.Claims["email"]),
		Roles: roles,
		Token: token,
	}, nil
}

func claimString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func claimStrings(values ...any) []string {
	var result []string
	for _, value := range values {
		switch v := value.(type) {
		case string:
			for _, part := range strings.Split(v, ",") {
				result = appendUnique(result, part)
			}
		case []string:
			for _, item := range v {
				result = appendUnique(result, item)
			}
		case []any:
			for _, item := range v {
				result = appendUnique(result, claimString(item))
			}
		}
	}
	return result
}

func appendUnique(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
