package domain

import "time"

// Identity representa al principal autenticado en el proveedor de identidad.
// Es distinta del UserProfile de la aplicacion.
type Identity struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	Locale           string     `json:"locale,omitempty"`
	AuthProvider     string     `json:"auth_provider,omitempty"`
	AuthSubject      string     `json:"-"`
	PasswordHash     string     `json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	OtpCodeHash      string     `json:"-"`
	OtpExpiresAt     *time.Time `json:"otp_expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// EmailConfirmed indica si la identidad ya confirmo su correo.
func (i Identity) EmailConfirmed() bool {
	return i.EmailConfirmedAt != nil
}

// Session agrupa la identidad activa con sus tokens emitidos.
type Session struct {
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionEventKind discrimina las variantes de un cambio de sesion.
type SessionEventKind int

const (
	SessionSignedOut SessionEventKind = iota
	SessionSignedIn
	SessionUnconfirmed
)

// SessionEvent es la variante etiquetada que procesa el controller: un
// sign-in confirmado, un sign-out, o una sesion cuyo correo no fue confirmado.
type SessionEvent struct {
	Kind     SessionEventKind
	Identity *Identity
}

// EventFromSession clasifica una sesion (o su ausencia) en una variante.
func EventFromSession(session *Session) SessionEvent {
	if session == nil {
		return SessionEvent{Kind: SessionSignedOut}
	}
	identity := session.Identity
	if !identity.EmailConfirmed() {
		return SessionEvent{Kind: SessionUnconfirmed, Identity: &identity}
	}
	return SessionEvent{Kind: SessionSignedIn, Identity: &identity}
}
