package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ossideas/internal/backend"
	"ossideas/internal/domain"
)

// Mensajes estables hacia el usuario; el texto del backend nunca se expone.
const (
	msgInitFailed         = "Failed to initialize authentication"
	msgInvalidCredentials = "Invalid email or password. Please check your credentials and try again."
	msgPasswordMismatch   = "Passwords do not match."
	msgAccountExists      = "An account with this email already exists. Please sign in instead."
	msgWeakPassword       = "Password must be at least 8 characters long."
	msgInvalidEmail       = "Please enter a valid email address."
	msgUnexpected         = "An unexpected error occurred. Please try again."
	msgSignOutFailed      = "Failed to sign out. Please try again."
	msgOnboardingFailed   = "Failed to save your information. Please try again."
)

// Password centinela usado por el sondeo de cuenta existente en Register.
// Nunca puede coincidir con una credencial real emitida por la aplicacion.
const registerProbePassword = "ossideas-register-probe-7f2c1d"

const (
	profileMaxRetries = 3
	profileRetryDelay = time.Second
)

var ErrNotAuthenticated = errors.New("not authenticated")

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{6,19}$`)

// ValidationError es un error de campo del formulario; no toca el estado
// compartido de sesion.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthResponse es el resultado estructurado de login y register. Los errores
// esperados viajan aqui, nunca como error de Go.
type AuthResponse struct {
	User                      *domain.UserProfile `json:"user"`
	Error                     string              `json:"error,omitempty"`
	EmailVerificationRequired bool                `json:"email_verification_required,omitempty"`
	OnboardingRequired        bool                `json:"onboarding_required,omitempty"`
}

// SessionController es la unica fuente de verdad sobre quien esta autenticado
// y que falta antes de poder usar el producto. Todo cambio de estado pasa por
// sus operaciones o por las notificaciones de cambio de sesion del backend.
type SessionController struct {
	logger      *zap.Logger
	provider    backend.Provider
	callbackURL string
	maxRetries  int
	retryDelay  time.Duration

	mu          sync.Mutex
	state       domain.AuthState
	subs        map[int]chan domain.AuthState
	nextSub     int
	unsubscribe func()
	closed      bool
}

func NewSessionController(logger *zap.Logger, provider backend.Provider, callbackURL string) *SessionController {
	c := &SessionController{
		logger:      logger,
		provider:    provider,
		callbackURL: callbackURL,
		maxRetries:  profileMaxRetries,
		retryDelay:  profileRetryDelay,
		state:       domain.AuthState{Loading: true},
		subs:        make(map[int]chan domain.AuthState),
	}
	c.unsubscribe = provider.OnSessionChange(c.handleSessionChange)
	return c
}

// State devuelve el snapshot actual. Los consumidores solo leen.
func (c *SessionController) State() domain.AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe entrega snapshots de estado en un canal con buffer; si el
// consumidor se atrasa los snapshots intermedios se descartan.
func (c *SessionController) Subscribe() (<-chan domain.AuthState, func()) {
	ch := make(chan domain.AuthState, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
}

// Close libera la suscripcion al backend y cierra los canales de consumidores.
func (c *SessionController) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
	}
	c.mu.Unlock()
}

// Initialize resuelve la sesion persistida al arrancar. Es idempotente: dos
// llamadas seguidas sin cambios de sesion dejan el mismo estado.
func (c *SessionController) Initialize(ctx context.Context) domain.AuthState {
	session, err := c.provider.GetSession(ctx)
	if err != nil {
		c.logger.Error("session fetch failed", zap.Error(err))
		return c.setState(domain.AuthState{Error: msgInitFailed})
	}
	return c.applyEvent(ctx, domain.EventFromSession(session))
}

// Login delega la verificacion de credenciales y resuelve el perfil. Los
// fallos esperados vuelven en el AuthResponse, no como error.
func (c *SessionController) Login(ctx context.Context, emailAddr, password string) AuthResponse {
	c.beginLoading()

	session, err := c.provider.SignInWithPassword(ctx, emailAddr, password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrEmailNotConfirmed):
			c.setState(domain.AuthState{EmailVerificationRequired: true})
			return AuthResponse{EmailVerificationRequired: true}
		case errors.Is(err, backend.ErrInvalidCredentials), errors.Is(err, backend.ErrUserNotFound):
			c.setState(domain.AuthState{Error: msgInvalidCredentials})
			return AuthResponse{Error: msgInvalidCredentials}
		default:
			c.logger.Error("login failed", zap.Error(err))
			c.setState(domain.AuthState{Error: msgUnexpected})
			return AuthResponse{Error: msgUnexpected}
		}
	}

	profile := c.resolveProfile(ctx, session.Identity.ID)
	onboardingRequired := profile != nil && !profile.Onboarded()
	c.setState(domain.AuthState{User: profile, OnboardingRequired: onboardingRequired})
	return AuthResponse{User: profile, OnboardingRequired: onboardingRequired}
}

// Register valida localmente, sondea si la cuenta ya existe y delega el alta.
// Un usuario recien registrado siempre queda con onboarding pendiente.
func (c *SessionController) Register(ctx context.Context, emailAddr, password, confirmPassword, fullName string) AuthResponse {
	if password != confirmPassword {
		// Error local: no llega a la red ni al estado compartido.
		return AuthResponse{Error: msgPasswordMismatch}
	}

	c.beginLoading()

	_, probeErr := c.provider.SignInWithPassword(ctx, emailAddr, registerProbePassword)
	if probeErr == nil || errors.Is(probeErr, backend.ErrInvalidCredentials) || errors.Is(probeErr, backend.ErrEmailNotConfirmed) {
		c.setState(domain.AuthState{Error: msgAccountExists})
		return AuthResponse{Error: msgAccountExists}
	}

	result, err := c.provider.SignUp(ctx, emailAddr, password, backend.SignUpMetadata{FullName: fullName})
	if err != nil {
		message := msgUnexpected
		switch {
		case errors.Is(err, backend.ErrUserAlreadyExists):
			message = msgAccountExists
		case errors.Is(err, backend.ErrWeakPassword):
			message = msgWeakPassword
		case errors.Is(err, backend.ErrInvalidEmail):
			message = msgInvalidEmail
		default:
			c.logger.Error("register failed", zap.Error(err))
		}
		c.setState(domain.AuthState{Error: message})
		return AuthResponse{Error: message}
	}

	if result.Session == nil {
		c.setState(domain.AuthState{EmailVerificationRequired: true})
		return AuthResponse{EmailVerificationRequired: true}
	}

	profile := c.resolveProfile(ctx, result.Identity.ID)
	c.setState(domain.AuthState{User: profile, OnboardingRequired: true})
	return AuthResponse{User: profile, OnboardingRequired: true}
}

// CompleteOnboarding persiste los datos del formulario y re-resuelve el
// perfil desde el backend. Es la unica transicion de onboardingRequired a
// false dentro de una sesion, fuera de un re-initialize completo.
func (c *SessionController) CompleteOnboarding(ctx context.Context, data domain.OnboardingData) error {
	if err := validateOnboarding(&data); err != nil {
		return err
	}

	identity, err := c.provider.GetCurrentIdentity(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		return ErrNotAuthenticated
	}

	prev := c.beginLoading()

	if err := c.provider.UpdateProfile(ctx, identity.ID, data); err != nil {
		c.logger.Error("onboarding update failed", zap.Error(err), zap.String("identity_id", identity.ID))
		c.setState(domain.AuthState{
			User:               prev.User,
			OnboardingRequired: prev.OnboardingRequired,
			Error:              msgOnboardingFailed,
		})
		return err
	}

	profile := c.resolveProfile(ctx, identity.ID)
	c.setState(domain.AuthState{User: profile})
	return nil
}

// LoginWithGoogle devuelve la URL de consentimiento; el perfil se resuelve
// recien cuando el navegador vuelve por el callback.
func (c *SessionController) LoginWithGoogle(ctx context.Context, state string) (string, error) {
	return c.provider.SignInWithOAuth(ctx, "google", backend.OAuthParams{
		RedirectURL:   c.callbackURL,
		State:         state,
		OfflineAccess: true,
		ForceConsent:  true,
	})
}

// Logout delega el sign-out; el estado anonimo llega por la notificacion de
// cambio de sesion del backend.
func (c *SessionController) Logout(ctx context.Context) error {
	prev := c.beginLoading()

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Error("logout failed", zap.Error(err))
		c.setState(domain.AuthState{
			User:               prev.User,
			OnboardingRequired: prev.OnboardingRequired,
			Error:              msgSignOutFailed,
		})
		return errors.New(msgSignOutFailed)
	}
	return nil
}

// GetCurrentUser lee identidad y perfil directo del backend sin mutar el
// estado compartido. Lo usa el callback de OAuth.
func (c *SessionController) GetCurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	identity, err := c.provider.GetCurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil || !identity.EmailConfirmed() {
		return nil, nil
	}
	return c.resolveProfile(ctx, identity.ID), nil
}

// handleSessionChange procesa sign-in, sign-out y refresh disparados desde
// cualquier parte, incluida otra pestana. Comparte la logica de resolucion
// con Initialize.
func (c *SessionController) handleSessionChange(session *domain.Session) {
	c.applyEvent(context.Background(), domain.EventFromSession(session))
}

func (c *SessionController) applyEvent(ctx context.Context, event domain.SessionEvent) domain.AuthState {
	switch event.Kind {
	case domain.SessionUnconfirmed:
		return c.setState(domain.AuthState{EmailVerificationRequired: true})
	case domain.SessionSignedIn:
		profile := c.resolveProfile(ctx, event.Identity.ID)
		onboardingRequired := profile != nil && !profile.Onboarded()
		return c.setState(domain.AuthState{User: profile, OnboardingRequired: onboardingRequired})
	default:
		return c.setState(domain.AuthState{})
	}
}

// resolveProfile busca el perfil con reintentos acotados; solo la carrera de
// aprovisionamiento (fila inexistente) se reintenta. Un perfil irresoluble
// vuelve como nil y no tumba el flujo completo.
func (c *SessionController) resolveProfile(ctx context.Context, identityID string) *domain.UserProfile {
	profile, err := retryFixed(ctx, c.maxRetries, c.retryDelay,
		func(ctx context.Context) (domain.UserProfile, error) {
			return c.provider.FetchProfileByID(ctx, identityID)
		},
		func(err error) bool {
			return errors.Is(err, backend.ErrNotFound)
		},
	)
	if err != nil {
		c.logger.Warn("profile unavailable", zap.Error(err), zap.String("identity_id", identityID))
		return nil
	}
	return &profile
}

// beginLoading reemplaza el estado por uno cargando, limpiando error y flags
// pero conservando el usuario visible. Devuelve el estado previo.
func (c *SessionController) beginLoading() domain.AuthState {
	c.mu.Lock()
	prev := c.state
	c.mu.Unlock()
	c.setState(domain.AuthState{
		User:               prev.User,
		Loading:            true,
		OnboardingRequired: prev.OnboardingRequired,
	})
	return prev
}

func (c *SessionController) setState(next domain.AuthState) domain.AuthState {
	c.mu.Lock()
	c.state = next
	channels := make([]chan domain.AuthState, 0, len(c.subs))
	for _, ch := range c.subs {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- next:
		default:
		}
	}
	return next
}

func validateOnboarding(data *domain.OnboardingData) error {
	data.PhoneNumber = strings.TrimSpace(data.PhoneNumber)
	data.Location = strings.TrimSpace(data.Location)
	data.UsagePurpose = strings.TrimSpace(data.UsagePurpose)
	data.ReferralSource = strings.TrimSpace(data.ReferralSource)

	if data.PhoneNumber == "" {
		return &ValidationError{Field: "phone_number", Message: "Phone number is required."}
	}
	if !phonePattern.MatchString(data.PhoneNumber) {
		return &ValidationError{Field: "phone_number", Message: "Please enter a valid phone number."}
	}
	if data.Location == "" {
		return &ValidationError{Field: "location", Message: "Location is required."}
	}
	if data.UsagePurpose == "" {
		return &ValidationError{Field: "usage_purpose", Message: "Usage purpose is required."}
	}
	industries := data.Industries[:0]
	for _, industry := range data.Industries {
		if trimmed := strings.TrimSpace(industry); trimmed != "" {
			industries = append(industries, trimmed)
		}
	}
	data.Industries = industries
	if len(data.Industries) == 0 {
		return &ValidationError{Field: "industries", Message: "Select at least one industry."}
	}
	if data.ReferralSource == "" {
		return &ValidationError{Field: "referral_source", Message: "Referral source is required."}
	}
	return nil
}
