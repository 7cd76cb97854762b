package domain

import (
	"strings"
	"time"
)

// UserProfile es la entidad de usuario de la aplicacion, derivada de la
// identidad y persistida en la tabla profiles.
type UserProfile struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       *string    `json:"full_name,omitempty"`
	Location       *string    `json:"location,omitempty"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	PhoneNumber    *string    `json:"phone_number,omitempty"`
	UsagePurpose   *string    `json:"usage_purpose,omitempty"`
	Industries     []string   `json:"industries,omitempty"`
	ReferralSource *string    `json:"referral_source,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Onboarded indica si el perfil completo el onboarding: telefono, ubicacion,
// proposito de uso y fuente de referido no vacios, e industries no vacia.
// Strings de solo espacios cuentan como vacios.
func (p UserProfile) Onboarded() bool {
	if !present(p.PhoneNumber) || !present(p.Location) {
		return false
	}
	if !present(p.UsagePurpose) || !present(p.ReferralSource) {
		return false
	}
	for _, industry := range p.Industries {
		if strings.TrimSpace(industry) != "" {
			return true
		}
	}
	return false
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// OnboardingData son los campos recolectados una unica vez por el formulario
// de onboarding y mezclados en el perfil al completarse.
type OnboardingData struct {
	PhoneNumber    string   `json:"phone_number"`
	Location       string   `json:"location"`
	UsagePurpose   string   `json:"usage_purpose"`
	Industries     []string `json:"industries"`
	ReferralSource string   `json:"referral_source"`
}

// AuthState es el snapshot de sesion visible para los consumidores. Se
// reemplaza siempre completo, nunca se muta campo a campo.
type AuthState struct {
	User                      *UserProfile `json:"user"`
	Loading                   bool         `json:"loading"`
	Error                     string       `json:"error,omitempty"`
	EmailVerificationRequired bool         `json:"email_verification_required"`
	OnboardingRequired        bool         `json:"onboarding_required"`
}
