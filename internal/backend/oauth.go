package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuth encapsula el flujo authorization-code contra Google.
type GoogleOAuth struct {
	config oauth2.Config
}

// OAuthUserInfo es el perfil normalizado devuelto por el proveedor externo.
type OAuthUserInfo struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Locale  string `json:"locale"`
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL arma la URL de consentimiento. Con OfflineAccess y ForceConsent el
// proveedor emite refresh token tambien en logins repetidos.
func (g *GoogleOAuth) AuthURL(params OAuthParams) string {
	cfg := g.config
	if params.RedirectURL != "" {
		cfg.RedirectURL = params.RedirectURL
	}
	opts := []oauth2.AuthCodeOption{}
	if params.OfflineAccess {
		opts = append(opts, oauth2.AccessTypeOffline)
	}
	if params.ForceConsent {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(params.State, opts...)
}

// Exchange canjea el codigo por tokens y consulta el endpoint de userinfo.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (OAuthUserInfo, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return OAuthUserInfo{}, ErrOAuthInvalid
	}

	client := g.config.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return OAuthUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OAuthUserInfo{}, fmt.Errorf("userinfo request failed: status %d", resp.StatusCode)
	}

	var info OAuthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return OAuthUserInfo{}, err
	}
	if info.Subject == "" {
		return OAuthUserInfo{}, ErrOAuthInvalid
	}
	return info, nil
}
