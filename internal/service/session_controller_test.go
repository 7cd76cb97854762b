package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ossideas/internal/backend"
	"ossideas/internal/domain"
)

type stubProvider struct {
	mu sync.Mutex

	session       *domain.Session
	getSessionErr error

	signInSession *domain.Session
	signInErr     error
	signInCalls   int

	signUpResult backend.SignUpResult
	signUpErr    error
	signUpCalls  int

	signOutErr   error
	signOutCalls int

	identity *domain.Identity

	profiles   map[string]domain.UserProfile
	fetchErr   error
	fetchCalls int

	updateErr error
	updated   map[string]domain.OnboardingData

	callbacks []func(*domain.Session)
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		profiles: make(map[string]domain.UserProfile),
		updated:  make(map[string]domain.OnboardingData),
	}
}

func (s *stubProvider) GetSession(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getSessionErr != nil {
		return nil, s.getSessionErr
	}
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *stubProvider) OnSessionChange(fn func(*domain.Session)) func() {
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
	return func() {}
}

func (s *stubProvider) emit(session *domain.Session) {
	s.mu.Lock()
	callbacks := append([]func(*domain.Session){}, s.callbacks...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(session)
	}
}

func (s *stubProvider) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInCalls++
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	if s.signInSession == nil {
		return nil, backend.ErrUserNotFound
	}
	copied := *s.signInSession
	return &copied, nil
}

func (s *stubProvider) SignUp(_ context.Context, _, _ string, _ backend.SignUpMetadata) (backend.SignUpResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signUpCalls++
	return s.signUpResult, s.signUpErr
}

func (s *stubProvider) SignOut(_ context.Context) error {
	s.mu.Lock()
	err := s.signOutErr
	s.signOutCalls++
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(nil)
	return nil
}

func (s *stubProvider) SignInWithOAuth(_ context.Context, _ string, params backend.OAuthParams) (string, error) {
	return "https://accounts.example.com/consent?state=" + params.State, nil
}

func (s *stubProvider) GetCurrentIdentity(_ context.Context) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, nil
	}
	copied := *s.identity
	return &copied, nil
}

func (s *stubProvider) FetchProfileByID(_ context.Context, id string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return domain.UserProfile{}, s.fetchErr
	}
	profile, ok := s.profiles[id]
	if !ok {
		return domain.UserProfile{}, backend.ErrNotFound
	}
	return profile, nil
}

func (s *stubProvider) UpsertProfile(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *stubProvider) UpdateProfile(_ context.Context, id string, data domain.OnboardingData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated[id] = data
	profile := s.profiles[id]
	profile.ID = id
	profile.PhoneNumber = &data.PhoneNumber
	profile.Location = &data.Location
	profile.UsagePurpose = &data.UsagePurpose
	profile.Industries = data.Industries
	profile.ReferralSource = &data.ReferralSource
	s.profiles[id] = profile
	return nil
}

func newTestController(provider backend.Provider) *SessionController {
	c := NewSessionController(zap.NewNop(), provider, "http://localhost:8080/auth/callback")
	c.retryDelay = 5 * time.Millisecond
	return c
}

func confirmedIdentity(id, emailAddr string) domain.Identity {
	confirmedAt := time.Now().UTC()
	return domain.Identity{
		ID:               id,
		Email:            emailAddr,
		EmailConfirmedAt: &confirmedAt,
		CreatedAt:        time.Now().UTC(),
	}
}

func onboardedProfile(id string) domain.UserProfile {
	phone := "+15551234567"
	location := "NYC"
	purpose := "business"
	referral := "linkedin"
	return domain.UserProfile{
		ID:             id,
		Email:          "user@example.com",
		PhoneNumber:    &phone,
		Location:       &location,
		UsagePurpose:   &purpose,
		Industries:     []string{"SaaS"},
		ReferralSource: &referral,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestInitializeNoSession(t *testing.T) {
	provider := newStubProvider()
	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if state.User != nil || state.Loading || state.Error != "" {
		t.Fatalf("expected anonymous state, got %+v", state)
	}
	if state.EmailVerificationRequired || state.OnboardingRequired {
		t.Fatalf("expected flags cleared, got %+v", state)
	}
}

func TestInitializeConfirmedSessionOnboarded(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = onboardedProfile("u1")

	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if state.User == nil || state.User.ID != "u1" {
		t.Fatalf("expected resolved profile, got %+v", state)
	}
	if state.OnboardingRequired {
		t.Fatalf("expected onboarding not required for complete profile")
	}
}

func TestInitializeConfirmedSessionIncompleteProfile(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if state.User == nil || !state.OnboardingRequired {
		t.Fatalf("expected onboarding required, got %+v", state)
	}
}

func TestInitializeUnconfirmedSession(t *testing.T) {
	provider := newStubProvider()
	provider.session = &domain.Session{
		Identity:  domain.Identity{ID: "u1", Email: "user@example.com"},
		ExpiresAt: time.Now().Add(time.Hour),
	}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if state.User != nil || !state.EmailVerificationRequired {
		t.Fatalf("expected email verification pending, got %+v", state)
	}
	if state.OnboardingRequired {
		t.Fatalf("expected onboarding flag false while unconfirmed")
	}
}

func TestInitializeBackendError(t *testing.T) {
	provider := newStubProvider()
	provider.getSessionErr = errors.New("backend down")

	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if state.Error != "Failed to initialize authentication" {
		t.Fatalf("expected init failure message, got %q", state.Error)
	}
	if state.User != nil || state.Loading {
		t.Fatalf("expected anonymous non-loading state, got %+v", state)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	first := ctrl.Initialize(context.Background())
	second := ctrl.Initialize(context.Background())

	if first.OnboardingRequired != second.OnboardingRequired ||
		first.EmailVerificationRequired != second.EmailVerificationRequired ||
		first.Error != second.Error ||
		(first.User == nil) != (second.User == nil) {
		t.Fatalf("expected identical states, got %+v vs %+v", first, second)
	}
	if second.User == nil || second.User.ID != "u1" {
		t.Fatalf("expected profile resolved on second initialize")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	provider := newStubProvider()
	provider.signInErr = backend.ErrInvalidCredentials

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())

	resp := ctrl.Login(context.Background(), "a@b.com", "wrong")
	if resp.User != nil {
		t.Fatalf("expected no user")
	}
	if resp.Error != "Invalid email or password. Please check your credentials and try again." {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}

	state := ctrl.State()
	if state.EmailVerificationRequired {
		t.Fatalf("expected emailVerificationRequired false")
	}
	if state.Loading {
		t.Fatalf("expected loading false after failed login")
	}
}

func TestLoginUnconfirmedEmail(t *testing.T) {
	provider := newStubProvider()
	provider.signInErr = backend.ErrEmailNotConfirmed

	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Login(context.Background(), "a@b.com", "secret123")
	if resp.Error != "" {
		t.Fatalf("verification gate is not an error, got %q", resp.Error)
	}
	if !resp.EmailVerificationRequired {
		t.Fatalf("expected emailVerificationRequired in response")
	}
	if !ctrl.State().EmailVerificationRequired {
		t.Fatalf("expected emailVerificationRequired in state")
	}
}

func TestLoginSuccessIncompleteProfile(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.signInSession = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Login(context.Background(), "user@example.com", "secret123")
	if resp.Error != "" || resp.User == nil {
		t.Fatalf("expected success, got %+v", resp)
	}
	if !resp.OnboardingRequired {
		t.Fatalf("expected onboarding required for incomplete profile")
	}
}

func TestRegisterPasswordMismatchSkipsNetwork(t *testing.T) {
	provider := newStubProvider()
	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Register(context.Background(), "a@b.com", "secret123", "secret124", "")
	if resp.Error != "Passwords do not match." {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if provider.signInCalls != 0 || provider.signUpCalls != 0 {
		t.Fatalf("expected no network calls, got probe=%d signup=%d", provider.signInCalls, provider.signUpCalls)
	}
	if ctrl.State().Error != "" {
		t.Fatalf("local validation must not touch shared error state")
	}
}

func TestRegisterExistingAccountProbe(t *testing.T) {
	provider := newStubProvider()
	provider.signInErr = backend.ErrInvalidCredentials

	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Register(context.Background(), "a@b.com", "secret123", "secret123", "")
	if resp.Error != "An account with this email already exists. Please sign in instead." {
		t.Fatalf("unexpected error: %q", resp.Error)
	}
	if provider.signUpCalls != 0 {
		t.Fatalf("expected no signup call when account exists, got %d", provider.signUpCalls)
	}
}

func TestRegisterForcesOnboarding(t *testing.T) {
	provider := newStubProvider()
	provider.signInErr = backend.ErrUserNotFound
	identity := confirmedIdentity("u1", "user@example.com")
	provider.signUpResult = backend.SignUpResult{
		Identity: identity,
		Session:  &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)},
	}
	// Perfil pre-sembrado completo: el registro fuerza onboarding igual.
	provider.profiles["u1"] = onboardedProfile("u1")

	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Register(context.Background(), "user@example.com", "secret123", "secret123", "Test")
	if resp.Error != "" {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if !resp.OnboardingRequired {
		t.Fatalf("register must always force onboarding")
	}
	if !ctrl.State().OnboardingRequired {
		t.Fatalf("state must reflect forced onboarding")
	}
}

func TestRegisterPendingConfirmation(t *testing.T) {
	provider := newStubProvider()
	provider.signInErr = backend.ErrUserNotFound
	provider.signUpResult = backend.SignUpResult{
		Identity: domain.Identity{ID: "u1", Email: "user@example.com"},
	}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	resp := ctrl.Register(context.Background(), "user@example.com", "secret123", "secret123", "")
	if !resp.EmailVerificationRequired || resp.Error != "" {
		t.Fatalf("expected verification gate, got %+v", resp)
	}
	if !ctrl.State().EmailVerificationRequired {
		t.Fatalf("expected verification gate in state")
	}
}

func TestResolveProfileRetryBound(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	// Sin fila de perfil: cada fetch devuelve not found.

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.retryDelay = 30 * time.Millisecond

	start := time.Now()
	state := ctrl.Initialize(context.Background())
	elapsed := time.Since(start)

	if provider.fetchCalls != 4 {
		t.Fatalf("expected 4 fetch attempts (3 retries), got %d", provider.fetchCalls)
	}
	if state.User != nil {
		t.Fatalf("expected nil profile after exhausted retries")
	}
	if state.OnboardingRequired {
		t.Fatalf("no profile means no onboarding needed")
	}
	if elapsed < 3*30*time.Millisecond {
		t.Fatalf("expected at least three delays, took %v", elapsed)
	}
	if elapsed > time.Second {
		t.Fatalf("retry loop took too long: %v", elapsed)
	}
}

func TestResolveProfileNonRetryableError(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.fetchErr = errors.New("connection refused")

	ctrl := newTestController(provider)
	defer ctrl.Close()

	state := ctrl.Initialize(context.Background())
	if provider.fetchCalls != 1 {
		t.Fatalf("non-retryable errors must not retry, got %d calls", provider.fetchCalls)
	}
	if state.User != nil || state.Loading {
		t.Fatalf("expected null profile tolerated, got %+v", state)
	}
}

func TestLogoutResetsToAnonymous(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = onboardedProfile("u1")

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())
	if ctrl.State().User == nil {
		t.Fatalf("expected signed-in state before logout")
	}

	if err := ctrl.Logout(context.Background()); err != nil {
		t.Fatalf("expected logout success, got %v", err)
	}

	state := ctrl.State()
	if state.User != nil {
		t.Fatalf("expected anonymous state after logout, got %+v", state)
	}
	if state.Loading {
		t.Fatalf("expected loading false after logout")
	}
}

func TestLogoutFailureKeepsUser(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = onboardedProfile("u1")
	provider.signOutErr = errors.New("backend down")

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())

	err := ctrl.Logout(context.Background())
	if err == nil {
		t.Fatalf("expected logout error")
	}

	state := ctrl.State()
	if state.Error == "" {
		t.Fatalf("expected error set on logout failure")
	}
	if state.Loading {
		t.Fatalf("expected loading false on logout failure")
	}
	// El sign-out no ocurrio: el usuario visible se conserva.
	if state.User == nil {
		t.Fatalf("expected user preserved when sign-out did not happen")
	}
}

func TestCompleteOnboarding(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.identity = &identity
	provider.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())
	if !ctrl.State().OnboardingRequired {
		t.Fatalf("expected onboarding required before completion")
	}

	err := ctrl.CompleteOnboarding(context.Background(), domain.OnboardingData{
		PhoneNumber:    "+15551234567",
		Location:       "NYC",
		UsagePurpose:   "business",
		Industries:     []string{"SaaS"},
		ReferralSource: "linkedin",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	state := ctrl.State()
	if state.OnboardingRequired {
		t.Fatalf("expected onboarding cleared")
	}
	if state.User == nil || state.User.PhoneNumber == nil || *state.User.PhoneNumber != "+15551234567" {
		t.Fatalf("expected re-resolved profile with persisted phone, got %+v", state.User)
	}
}

func TestCompleteOnboardingValidation(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.identity = &identity

	ctrl := newTestController(provider)
	defer ctrl.Close()

	cases := []struct {
		name  string
		data  domain.OnboardingData
		field string
	}{
		{"missing phone", domain.OnboardingData{Location: "NYC", UsagePurpose: "x", Industries: []string{"SaaS"}, ReferralSource: "y"}, "phone_number"},
		{"malformed phone", domain.OnboardingData{PhoneNumber: "abc", Location: "NYC", UsagePurpose: "x", Industries: []string{"SaaS"}, ReferralSource: "y"}, "phone_number"},
		{"missing location", domain.OnboardingData{PhoneNumber: "+15551234567", UsagePurpose: "x", Industries: []string{"SaaS"}, ReferralSource: "y"}, "location"},
		{"empty industries", domain.OnboardingData{PhoneNumber: "+15551234567", Location: "NYC", UsagePurpose: "x", ReferralSource: "y"}, "industries"},
		{"whitespace industries", domain.OnboardingData{PhoneNumber: "+15551234567", Location: "NYC", UsagePurpose: "x", Industries: []string{"  "}, ReferralSource: "y"}, "industries"},
		{"missing referral", domain.OnboardingData{PhoneNumber: "+15551234567", Location: "NYC", UsagePurpose: "x", Industries: []string{"SaaS"}}, "referral_source"},
	}
	for _, tc := range cases {
		err := ctrl.CompleteOnboarding(context.Background(), tc.data)
		var fieldErr *ValidationError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if fieldErr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, fieldErr.Field)
		}
		if ctrl.State().Error != "" {
			t.Fatalf("%s: validation errors must not touch shared state", tc.name)
		}
	}
}

func TestCompleteOnboardingRequiresIdentity(t *testing.T) {
	provider := newStubProvider()
	ctrl := newTestController(provider)
	defer ctrl.Close()

	err := ctrl.CompleteOnboarding(context.Background(), domain.OnboardingData{
		PhoneNumber:    "+15551234567",
		Location:       "NYC",
		UsagePurpose:   "business",
		Industries:     []string{"SaaS"},
		ReferralSource: "linkedin",
	})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCompleteOnboardingPersistFailure(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.identity = &identity
	provider.profiles["u1"] = domain.UserProfile{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())
	provider.updateErr = errors.New("db down")

	err := ctrl.CompleteOnboarding(context.Background(), domain.OnboardingData{
		PhoneNumber:    "+15551234567",
		Location:       "NYC",
		UsagePurpose:   "business",
		Industries:     []string{"SaaS"},
		ReferralSource: "linkedin",
	})
	if err == nil {
		t.Fatalf("expected persistence error to propagate")
	}

	state := ctrl.State()
	if state.Loading {
		t.Fatalf("expected loading restored to false")
	}
	if state.Error == "" {
		t.Fatalf("expected error set")
	}
	if !state.OnboardingRequired {
		t.Fatalf("expected onboarding still required after failure")
	}
}

func TestSessionChangeNotificationResetsState(t *testing.T) {
	provider := newStubProvider()
	identity := confirmedIdentity("u1", "user@example.com")
	provider.session = &domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)}
	provider.profiles["u1"] = onboardedProfile("u1")

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())
	if ctrl.State().User == nil {
		t.Fatalf("expected signed-in state")
	}

	// Un sign-out disparado desde otra pestana llega por la suscripcion.
	provider.emit(nil)

	state := ctrl.State()
	if state.User != nil || state.OnboardingRequired || state.EmailVerificationRequired {
		t.Fatalf("expected anonymous reset, got %+v", state)
	}
}

func TestSessionChangeSignedInResolvesProfile(t *testing.T) {
	provider := newStubProvider()
	provider.profiles["u2"] = onboardedProfile("u2")

	ctrl := newTestController(provider)
	defer ctrl.Close()
	ctrl.Initialize(context.Background())

	identity := confirmedIdentity("u2", "other@example.com")
	provider.emit(&domain.Session{Identity: identity, ExpiresAt: time.Now().Add(time.Hour)})

	state := ctrl.State()
	if state.User == nil || state.User.ID != "u2" {
		t.Fatalf("expected profile resolved from notification, got %+v", state)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	provider := newStubProvider()
	ctrl := newTestController(provider)
	defer ctrl.Close()

	ch, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	ctrl.Initialize(context.Background())

	select {
	case state := <-ch:
		if state.Loading {
			t.Fatalf("expected resolved snapshot, got %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected snapshot on subscription channel")
	}
}

func TestLoginWithGoogleBuildsConsentURL(t *testing.T) {
	provider := newStubProvider()
	ctrl := newTestController(provider)
	defer ctrl.Close()

	url, err := ctrl.LoginWithGoogle(context.Background(), "state-123")
	if err != nil {
		t.Fatalf("expected url, got %v", err)
	}
	if url != "https://accounts.example.com/consent?state=state-123" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestGetCurrentUserUnconfirmed(t *testing.T) {
	provider := newStubProvider()
	provider.identity = &domain.Identity{ID: "u1", Email: "user@example.com"}

	ctrl := newTestController(provider)
	defer ctrl.Close()

	profile, err := ctrl.GetCurrentUser(context.Background())
	if err != nil || profile != nil {
		t.Fatalf("expected nil profile for unconfirmed identity, got %v %v", profile, err)
	}
}
