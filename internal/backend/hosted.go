package backend

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ossideas/internal/domain"
	"ossideas/internal/email"
	"ossideas/internal/repository"
)

const (
	otpTTL            = 10 * time.Minute
	minPasswordLength = 8
)

// HostedProvider implementa Provider sobre Postgres, tokens JWT y SMTP.
// Mantiene una unica sesion activa por proceso, igual que el cliente del
// proveedor original.
type HostedProvider struct {
	logger      *zap.Logger
	identities  repository.IdentityRepository
	profiles    repository.ProfileRepository
	tokens      *TokenService
	emailSender email.Sender
	otpLimiter  RateLimiter
	oauth       *GoogleOAuth
	notifier    *sessionNotifier

	// La fila de perfil se aprovisiona fuera de la transaccion de signup,
	// como lo haria un trigger del backend original.
	provisionDelay time.Duration

	confirmationRequired bool

	mu      sync.Mutex
	current *domain.Session
}

type HostedProviderOptions struct {
	ConfirmationRequired bool
	ProvisionDelay       time.Duration
	OAuth                *GoogleOAuth
	RateLimiter          RateLimiter
}

func NewHostedProvider(
	logger *zap.Logger,
	identities repository.IdentityRepository,
	profiles repository.ProfileRepository,
	tokens *TokenService,
	emailSender email.Sender,
	opts HostedProviderOptions,
) *HostedProvider {
	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = NewMemoryRateLimiter(otpTTL, 3)
	}
	delay := opts.ProvisionDelay
	if delay < 0 {
		delay = 0
	}
	return &HostedProvider{
		logger:               logger,
		identities:           identities,
		profiles:             profiles,
		tokens:               tokens,
		emailSender:          emailSender,
		otpLimiter:           limiter,
		oauth:                opts.OAuth,
		notifier:             newSessionNotifier(),
		provisionDelay:       delay,
		confirmationRequired: opts.ConfirmationRequired,
	}
}

func (p *HostedProvider) GetSession(_ context.Context) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	if time.Now().UTC().After(p.current.ExpiresAt) {
		p.current = nil
		return nil, nil
	}
	s := *p.current
	return &s, nil
}

func (p *HostedProvider) OnSessionChange(fn func(*domain.Session)) func() {
	return p.notifier.Subscribe(fn)
}

func (p *HostedProvider) SignInWithPassword(ctx context.Context, emailAddr, password string) (*domain.Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := p.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if identity.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !identity.EmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return p.openSession(identity)
}

func (p *HostedProvider) SignUp(ctx context.Context, emailAddr, password string, metadata SignUpMetadata) (SignUpResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || !isValidEmail(emailAddr) {
		return SignUpResult{}, ErrInvalidEmail
	}
	password = strings.TrimSpace(password)
	if len(password) < minPasswordLength {
		return SignUpResult{}, ErrWeakPassword
	}

	if _, err := p.identities.GetByEmail(ctx, emailAddr); err == nil {
		return SignUpResult{}, ErrUserAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return SignUpResult{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return SignUpResult{}, err
	}

	identity := domain.Identity{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		FullName:     strings.TrimSpace(metadata.FullName),
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if !p.confirmationRequired {
		now := time.Now().UTC()
		identity.EmailConfirmedAt = &now
	}

	if err := p.identities.Create(ctx, identity); err != nil {
		return SignUpResult{}, err
	}

	p.provisionProfileAsync(identity)

	if p.confirmationRequired {
		if err := p.sendConfirmationCode(ctx, identity); err != nil {
			p.logger.Warn("confirmation email failed", zap.Error(err), zap.String("email", emailAddr))
		}
		return SignUpResult{Identity: identity}, nil
	}

	session, err := p.openSession(identity)
	if err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{Identity: identity, Session: session}, nil
}

// RequestConfirmationCode reenvia un codigo de confirmacion al correo dado.
func (p *HostedProvider) RequestConfirmationCode(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	identity, err := p.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if identity.EmailConfirmed() {
		return nil
	}
	return p.sendConfirmationCode(ctx, identity)
}

// VerifyEmail valida el codigo OTP, marca el correo confirmado y abre sesion.
func (p *HostedProvider) VerifyEmail(ctx context.Context, emailAddr, code string) (*domain.Session, error) {
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" {
		return nil, ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return nil, ErrOTPInvalid
	}

	identity, err := p.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if identity.OtpCodeHash == "" || identity.OtpExpiresAt == nil {
		return nil, ErrOTPNotRequested
	}
	if time.Now().UTC().After(*identity.OtpExpiresAt) {
		return nil, ErrOTPExpired
	}
	if !verifyOTP(code, identity.OtpCodeHash) {
		return nil, ErrOTPInvalid
	}

	confirmedAt := time.Now().UTC()
	if err := p.identities.ConfirmEmail(ctx, identity.ID, confirmedAt); err != nil {
		return nil, err
	}
	identity.EmailConfirmedAt = &confirmedAt
	identity.OtpCodeHash = ""
	identity.OtpExpiresAt = nil

	return p.openSession(identity)
}

func (p *HostedProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	session := p.current
	p.current = nil
	p.mu.Unlock()

	if session != nil && p.tokens != nil {
		if err := p.tokens.RevokeRefresh(session.RefreshToken); err != nil {
			p.logger.Warn("refresh token revoke failed", zap.Error(err))
		}
	}
	p.notifier.Notify(nil)
	return nil
}

func (p *HostedProvider) SignInWithOAuth(_ context.Context, provider string, params OAuthParams) (string, error) {
	if strings.ToLower(strings.TrimSpace(provider)) != "google" || p.oauth == nil {
		return "", ErrOAuthInvalid
	}
	return p.oauth.AuthURL(params), nil
}

// CompleteOAuth intercambia el codigo del callback, vincula o crea la
// identidad y deja un perfil aprovisionado de forma idempotente.
func (p *HostedProvider) CompleteOAuth(ctx context.Context, code string) (*domain.Session, error) {
	if p.oauth == nil {
		return nil, ErrOAuthInvalid
	}
	info, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	identity, err := p.upsertOAuthIdentity(ctx, info)
	if err != nil {
		return nil, err
	}

	fullName := optional(identity.FullName)
	avatarURL := optional(identity.AvatarURL)
	if err := p.profiles.Upsert(ctx, domain.UserProfile{
		ID:        identity.ID,
		Email:     identity.Email,
		FullName:  fullName,
		AvatarURL: avatarURL,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	return p.openSession(identity)
}

func (p *HostedProvider) GetCurrentIdentity(ctx context.Context) (*domain.Identity, error) {
	p.mu.Lock()
	session := p.current
	p.mu.Unlock()
	if session == nil {
		return nil, nil
	}

	// Relee la fila en lugar de confiar en la copia de la sesion.
	identity, err := p.identities.GetByID(ctx, session.Identity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

func (p *HostedProvider) FetchProfileByID(ctx context.Context, id string) (domain.UserProfile, error) {
	profile, err := p.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func (p *HostedProvider) UpsertProfile(ctx context.Context, profile domain.UserProfile) error {
	return p.profiles.Upsert(ctx, profile)
}

func (p *HostedProvider) UpdateProfile(ctx context.Context, id string, data domain.OnboardingData) error {
	err := p.profiles.UpdateOnboarding(ctx, id, data, time.Now().UTC())
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (p *HostedProvider) upsertOAuthIdentity(ctx context.Context, info OAuthUserInfo) (domain.Identity, error) {
	provider := "google"
	subject := strings.TrimSpace(info.Subject)
	emailAddr := normalizeEmail(info.Email)
	if subject == "" {
		return domain.Identity{}, ErrOAuthInvalid
	}

	identity, err := p.identities.GetByAuth(ctx, provider, subject)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, err
	}

	if emailAddr != "" {
		existing, err := p.identities.GetByEmail(ctx, emailAddr)
		if err == nil {
			if err := p.identities.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
				return domain.Identity{}, err
			}
			confirmedAt := time.Now().UTC()
			if err := p.identities.ConfirmEmail(ctx, existing.ID, confirmedAt); err != nil {
				return domain.Identity{}, err
			}
			existing.AuthProvider = provider
			existing.AuthSubject = subject
			existing.EmailConfirmedAt = &confirmedAt
			if existing.FullName == "" {
				existing.FullName = strings.TrimSpace(info.Name)
			}
			if existing.AvatarURL == "" {
				existing.AvatarURL = strings.TrimSpace(info.Picture)
			}
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, err
		}
	}

	confirmedAt := time.Now().UTC()
	identity = domain.Identity{
		ID:               uuid.NewString(),
		Email:            emailAddr,
		FullName:         strings.TrimSpace(info.Name),
		AvatarURL:        strings.TrimSpace(info.Picture),
		Locale:           strings.TrimSpace(info.Locale),
		AuthProvider:     provider,
		AuthSubject:      subject,
		EmailConfirmedAt: &confirmedAt,
		CreatedAt:        time.Now().UTC(),
	}
	if err := p.identities.Create(ctx, identity); err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func (p *HostedProvider) openSession(identity domain.Identity) (*domain.Session, error) {
	if p.tokens == nil {
		return nil, errors.New("token service not configured")
	}
	pair, err := p.tokens.GeneratePair(identity)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		Identity:     identity,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(p.tokens.accessTokenTTL()),
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.notifier.Notify(session)

	s := *session
	return &s, nil
}

func (p *HostedProvider) provisionProfileAsync(identity domain.Identity) {
	fullName := optional(identity.FullName)
	go func() {
		if p.provisionDelay > 0 {
			time.Sleep(p.provisionDelay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := p.profiles.Upsert(ctx, domain.UserProfile{
			ID:        identity.ID,
			Email:     identity.Email,
			FullName:  fullName,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			p.logger.Error("profile provisioning failed", zap.Error(err), zap.String("identity_id", identity.ID))
		}
	}()
}

func (p *HostedProvider) sendConfirmationCode(ctx context.Context, identity domain.Identity) error {
	if p.otpLimiter != nil && !p.otpLimiter.Allow(identity.Email) {
		return ErrRateLimited
	}
	code, hash, expiresAt, err := generateOTP()
	if err != nil {
		return err
	}
	if err := p.identities.UpdateOTP(ctx, identity.ID, hash, expiresAt); err != nil {
		return err
	}
	if p.emailSender == nil {
		return errors.New("email sender not configured")
	}
	return p.emailSender.SendConfirmationCode(ctx, identity.Email, code, expiresAt)
}

func generateOTP() (string, string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])

	expiresAt := time.Now().UTC().Add(otpTTL)
	return code, saltStr + ":" + hash, expiresAt, nil
}

func verifyOTP(code, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	hashBytes := sha256.Sum256([]byte(parts[0] + ":" + code))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(parts[1])) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
