package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ossideas/internal/backend"
	"ossideas/internal/domain"
	"ossideas/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler expone el controller de sesion y el flujo OAuth sobre HTTP.
type AuthHandler struct {
	logger     *zap.Logger
	controller *service.SessionController
	provider   *backend.HostedProvider
	appBaseURL string
}

func NewAuthHandler(logger *zap.Logger, controller *service.SessionController, provider *backend.HostedProvider, appBaseURL string) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		controller: controller,
		provider:   provider,
		appBaseURL: appBaseURL,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirm_password" binding:"required"`
		FullName        string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp := h.controller.Register(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword, req.FullName)
	c.JSON(http.StatusOK, resp)
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	resp := h.controller.Login(c.Request.Context(), req.Email, req.Password)
	c.JSON(http.StatusOK, resp)
}

// VerifyEmail maneja POST /auth/verify.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	_, err := h.provider.VerifyEmail(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, backend.ErrOTPNotRequested),
			errors.Is(err, backend.ErrOTPExpired),
			errors.Is(err, backend.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("verify email failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify email"})
		}
		return
	}

	// La notificacion de cambio de sesion ya actualizo el estado.
	c.JSON(http.StatusOK, h.controller.State())
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.controller.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me maneja GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// GoogleStart maneja GET /auth/google: redirige al consentimiento de Google.
func (h *AuthHandler) GoogleStart(c *gin.Context) {
	state := uuid.NewString()
	authURL, err := h.controller.LoginWithGoogle(c.Request.Context(), state)
	if err != nil {
		h.logger.Error("oauth start failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start oauth"})
		return
	}
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback maneja GET /auth/callback: cierra el flujo OAuth, resuelve
// el perfil recien aprovisionado y decide si toca onboarding.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	expected, err := c.Cookie(oauthStateCookie)
	if err != nil || expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	if _, err := h.provider.CompleteOAuth(c.Request.Context(), code); err != nil {
		h.logger.Error("oauth callback failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not complete oauth"})
		return
	}

	// El fetch con reintentos absorbe el aprovisionamiento asincrono del perfil.
	profile, err := h.controller.GetCurrentUser(c.Request.Context())
	if err != nil {
		h.logger.Warn("post-oauth profile fetch failed", zap.Error(err))
	}

	target, _ := url.Parse(h.appBaseURL)
	if profile == nil || !profile.Onboarded() {
		query := target.Query()
		query.Set("onboarding", "1")
		target.RawQuery = query.Encode()
	}
	c.Redirect(http.StatusFound, target.String())
}

// CompleteOnboarding maneja POST /onboarding/complete.
func (h *AuthHandler) CompleteOnboarding(c *gin.Context) {
	var data domain.OnboardingData
	if err := c.ShouldBindJSON(&data); err != nil {
		h.logger.Warn("invalid onboarding request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.controller.CompleteOnboarding(c.Request.Context(), data); err != nil {
		var fieldErr *service.ValidationError
		switch {
		case errors.As(err, &fieldErr):
			c.JSON(http.StatusBadRequest, gin.H{"field": fieldErr.Field, "error": fieldErr.Message})
		case errors.Is(err, service.ErrNotAuthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		default:
			h.logger.Error("complete onboarding failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save onboarding"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
