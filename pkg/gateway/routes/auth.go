package routes

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clerapp/platform/pkg/common/httpx"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	gatewayauth "github.com/clerapp/platform/pkg/gateway/auth"
	"github.com/clerapp/platform/pkg/gateway/middleware"
	"github.com/clerapp/platform/pkg/profile"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Provider is the external identity provider driving the login redirect.
type Provider interface {
	AuthCodeURL(state string, signup bool) string
	Exchange(ctx context.Context, code string) (gatewayauth.UserInfo, error)
}

type ProfileSyncer interface {
	UpsertByIdentity(ctx context.Context, req models.CheckOrCreateUserRequest) (models.Profile, error)
	GetByIdentity(ctx context.Context, clerkID string) (models.Profile, error)
}

const (
	NextStepOnboarding = "onboarding"
	NextStepDashboard  = "dashboard"
)

type HomeResponse struct {
	ClerkID            string          `json:"clerk_id"`
	OnboardingComplete bool            `json:"onboarding_complete"`
	NextStep           string          `json:"next_step"`
	User               *models.Profile `json:"user,omitempty"`
}

type AuthHandler struct {
	provider     Provider
	states       gatewayauth.StateStore
	sessions     *gatewayauth.SessionManager
	profiles     ProfileSyncer
	cookieSecure bool
}

// NewAuthHandler wires the login flow. provider may be nil, in which case the
// login routes answer 503.
func NewAuthHandler(provider Provider, states gatewayauth.StateStore, sessions *gatewayauth.SessionManager, profiles ProfileSyncer, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		provider:     provider,
		states:       states,
		sessions:     sessions,
		profiles:     profiles,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc(middleware.RootRoute, h.handleHome).Methods(http.MethodGet)
	r.HandleFunc(middleware.LoginRoute, h.handleLogin(false)).Methods(http.MethodGet)
	r.HandleFunc("/signup", h.handleLogin(true)).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
}

func (h *AuthHandler) handleLogin(signup bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.provider == nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "login provider not configured"})
			return
		}
		state := uuid.NewString()
		if err := h.states.Save(r.Context(), state, safeReturnTo(r.URL.Query().Get("return_to"))); err != nil {
			logger.Log.WithError(err).Error("failed to store login state")
			httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		http.Redirect(w, r, h.provider.AuthCodeURL(state, signup), http.StatusFound)
	}
}

func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "login provider not configured"})
		return
	}
	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		logger.Log.WithField("provider_error", providerErr).Warn("login rejected by provider")
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "login failed"})
		return
	}

	returnTo, err := h.states.Consume(r.Context(), q.Get("state"))
	if err != nil {
		if !errors.Is(err, gatewayauth.ErrStateNotFound) {
			logger.Log.WithError(err).Error("failed to read login state")
		}
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid login state"})
		return
	}

	info, err := h.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		logger.Log.WithError(err).Warn("code exchange failed")
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "login failed"})
		return
	}

	// The profile is synchronized on every login; a failure is logged and
	// retried on the next one.
	given, family := splitNames(info)
	if _, err := h.profiles.UpsertByIdentity(r.Context(), models.CheckOrCreateUserRequest{
		ClerkID:    info.Subject,
		Email:      info.Email,
		GivenName:  given,
		FamilyName: family,
	}); err != nil {
		logger.Log.WithError(err).WithField("clerk_id", info.Subject).Warn("profile sync on login failed")
	}

	token, expires, err := h.sessions.IssueToken(gatewayauth.Identity{Subject: info.Subject, Email: info.Email})
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing session token")
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "signed out"})
}

// handleHome tells the client where a signed-in user should land: the
// onboarding wizard until the core profile fields are filled, else the dashboard.
func (h *AuthHandler) handleHome(w http.ResponseWriter, r *http.Request) {
	id, ok := gatewayauth.IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginRoute, http.StatusTemporaryRedirect)
		return
	}
	resp := HomeResponse{ClerkID: id.Subject, NextStep: NextStepOnboarding}
	p, err := h.profiles.GetByIdentity(r.Context(), id.Subject)
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
	case err != nil:
		httpx.WriteError(w, "home", err)
		return
	default:
		resp.User = &p
		resp.OnboardingComplete = p.OnboardingComplete
		if p.OnboardingComplete {
			resp.NextStep = NextStepDashboard
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// safeReturnTo only accepts same-site absolute paths. Browsers read a
// backslash as a slash, so "/\\host" is treated like "//host".
func safeReturnTo(value string) string {
	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") || strings.ContainsAny(value, "\\\r\n\t") {
		return middleware.RootRoute
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return middleware.RootRoute
	}
	return value
}

// splitNames falls back to the display name when the provider omits the
// structured name claims.
func splitNames(info gatewayauth.UserInfo) (string, string) {
	given, family := strings.TrimSpace(info.GivenName), strings.TrimSpace(info.FamilyName)
	if given != "" && family != "" {
		return given, family
	}
	parts := strings.Fields(info.Name)
	if given == "" && len(parts) > 0 {
		given = parts[0]
	}
	if family == "" && len(parts) > 1 {
		family = strings.Join(parts[1:], " ")
	}
	return given, family
}
