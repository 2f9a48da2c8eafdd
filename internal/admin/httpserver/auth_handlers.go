package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/estate-admin/internal/admin/banners"
	custommw "finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/observability"
	appsession "finitefield.org/estate-admin/internal/admin/session"
	"finitefield.org/estate-admin/internal/admin/templates/auth"
)

type authHandlers struct {
	authenticator custommw.Authenticator
	registry      *banners.Registry
	basePath      string
	loginPath     string
	landingPath   string
	secureCookie  bool
}

func newAuthHandlers(authenticator custommw.Authenticator, registry *banners.Registry, basePath, loginPath string, secure bool) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	basePath = normalizeBase(basePath)
	if strings.TrimSpace(loginPath) == "" {
		loginPath = resolveLoginPath(basePath, "")
	}
	return &authHandlers{
		authenticator: authenticator,
		registry:      registry,
		basePath:      basePath,
		loginPath:     loginPath,
		landingPath:   joinPath(basePath, "/banners"),
		secureCookie:  secure,
	}
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.isAuthenticated(r) {
		http.Redirect(w, r, h.redirectTarget(r.URL.Query().Get("next")), http.StatusFound)
		return
	}
	h.renderLoginPage(w, r, h.buildLoginPageData(r, nil), http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		state := &loginFormState{Error: "The form could not be submitted. Please try again."}
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	token := strings.TrimSpace(r.PostFormValue("id_token"))
	state := &loginFormState{Email: email, Next: r.PostFormValue("next")}

	if token == "" {
		state.Error = "Enter your ID token to sign in."
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusBadRequest)
		return
	}

	user, err := h.authenticator.Authenticate(r, token)
	if err != nil || user == nil {
		logger.Warn("admin login failed", zap.Error(err))
		state.Error = errorMessageFor(err)
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusUnauthorized)
		return
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if user.Email == "" {
			user.Email = email
		}
		sess.SetUser(&appsession.User{
			UID:   user.UID,
			Email: user.Email,
			Roles: append([]string(nil), user.Roles...),
		})
	}

	issued := token
	if user.Token != "" {
		issued = user.Token
	}
	h.setAuthCookie(w, issued)
	logger.Info("admin login", zap.String("user_id", user.UID))

	target := h.redirectTarget(state.Next)
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout ends the session and releases the banner editor held for it.
func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if h.registry != nil {
			h.registry.Drop(sess.ID())
		}
		sess.Destroy()
	}
	h.clearAuthCookie(w)

	redirect := h.loginURLWithParams(map[string]string{"status": "logged_out"})
	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

type loginFormState struct {
	Email string
	Next  string
	Error string
}

func (h *authHandlers) buildLoginPageData(r *http.Request, state *loginFormState) auth.LoginPageData {
	q := r.URL.Query()
	data := auth.LoginPageData{
		Email:     strings.TrimSpace(q.Get("email")),
		Message:   messageForQuery(q),
		Next:      h.normalizeNext(q.Get("next")),
		LoginPath: h.loginPath,
	}
	if state != nil {
		data.Email = state.Email
		data.Error = state.Error
		if state.Next != "" {
			data.Next = h.normalizeNext(state.Next)
		}
	}
	return data
}

func (h *authHandlers) renderLoginPage(w http.ResponseWriter, r *http.Request, data auth.LoginPageData, status int) {
	templ.Handler(auth.LoginPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *authHandlers) isAuthenticated(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return false
	}
	user := sess.User()
	return user != nil && strings.TrimSpace(user.UID) != ""
}

func errorMessageFor(err error) string {
	var authErr *custommw.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case custommw.ReasonTokenExpired:
			return "Your session has expired. Please sign in again."
		case custommw.ReasonMissingToken:
			return "Credentials are missing. Please check and try again."
		}
		return "Sign-in failed. Please check your credentials."
	}
	if err == nil || errors.Is(err, custommw.ErrUnauthorized) {
		return "Sign-in failed. Please check your credentials."
	}
	return "Sign-in is unavailable right now. Please try again later."
}

func messageForQuery(q url.Values) string {
	if q.Get("status") == "logged_out" {
		return "You have been signed out."
	}
	switch q.Get("reason") {
	case custommw.ReasonTokenExpired, "expired":
		return "Your session has expired. Please sign in again."
	case custommw.ReasonMissingToken:
		return "Please sign in to continue."
	case custommw.ReasonTokenInvalid:
		return "Your sign-in is no longer valid. Please try again."
	}
	return ""
}

func (h *authHandlers) redirectTarget(raw string) string {
	if next := h.normalizeNext(raw); next != "" {
		return next
	}
	return h.landingPath
}

func (h *authHandlers) setAuthCookie(w http.ResponseWriter, token string) {
	value := token
	if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
		value = "Bearer " + token
	}
	http.SetCookie(w, &http.Cookie{
		Name:     custommw.TokenCookieName,
		Value:    value,
		Path:     h.basePath,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandlers) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     custommw.TokenCookieName,
		Value:    "",
		Path:     h.basePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandlers) loginURLWithParams(params map[string]string) string {
	parsed, err := url.Parse(h.loginPath)
	if err != nil {
		return h.loginPath
	}
	q := parsed.Query()
	for key, val := range params {
		if strings.TrimSpace(val) != "" {
			q.Set(key, val)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return normalizeBase(a) == normalizeBase(b)
}

func (h *authHandlers) normalizeNext(raw string) string {
	sanitized := sanitizeNextTarget(h.basePath, raw)
	if sanitized == "" || samePath(pathOnly(sanitized), h.loginPath) {
		return ""
	}
	return sanitized
}

// sanitizeNextTarget accepts only same-origin paths under basePath.
func sanitizeNextTarget(basePath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}

	pathValue := parsed.Path
	if pathValue == "" {
		pathValue = "/"
	}
	unescaped, err := url.PathUnescape(pathValue)
	if err != nil || strings.Contains(unescaped, "\\") {
		return ""
	}

	cleaned := path.Clean(unescaped)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return ""
	}

	base := normalizeBase(basePath)
	if base != "/" && !hasSafePrefix(cleaned, base) {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		target += "#" + parsed.Fragment
	}
	return target
}

func normalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "/"
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if len(base) > 1 {
		base = strings.TrimRight(base, "/")
		if base == "" {
			base = "/"
		}
	}
	return base
}

func hasSafePrefix(pathValue, base string) bool {
	if base == "/" {
		return strings.HasPrefix(pathValue, "/")
	}
	if !strings.HasPrefix(pathValue, base) {
		return false
	}
	return len(pathValue) == len(base) || pathValue[len(base)] == '/'
}

func pathOnly(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Path
}
