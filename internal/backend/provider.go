package backend

import (
	"context"
	"errors"

	"ossideas/internal/domain"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrOTPInvalid         = errors.New("otp invalid")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPNotRequested    = errors.New("otp not requested")
	ErrRateLimited        = errors.New("rate limited")
	ErrOAuthInvalid       = errors.New("oauth data invalid")
)

// SignUpMetadata son los atributos opcionales aportados al registrarse.
type SignUpMetadata struct {
	FullName string
}

// SignUpResult devuelve la identidad creada y la sesion activa, que es nil
// cuando el registro queda pendiente de confirmacion de correo.
type SignUpResult struct {
	Identity domain.Identity
	Session  *domain.Session
}

// OAuthParams ajusta la URL de autorizacion del proveedor externo.
type OAuthParams struct {
	RedirectURL   string
	State         string
	OfflineAccess bool
	ForceConsent  bool
}

// Provider es el contrato del backend de identidad y perfiles. El controller
// de sesion depende solo de esta interfaz.
type Provider interface {
	GetSession(ctx context.Context) (*domain.Session, error)
	OnSessionChange(fn func(*domain.Session)) (unsubscribe func())

	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, metadata SignUpMetadata) (SignUpResult, error)
	SignOut(ctx context.Context) error
	SignInWithOAuth(ctx context.Context, provider string, params OAuthParams) (authURL string, err error)
	GetCurrentIdentity(ctx context.Context) (*domain.Identity, error)

	FetchProfileByID(ctx context.Context, id string) (domain.UserProfile, error)
	UpsertProfile(ctx context.Context, profile domain.UserProfile) error
	UpdateProfile(ctx context.Context, id string, data domain.OnboardingData) error
}
