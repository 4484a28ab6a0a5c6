package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jwalitptl/practice-api/internal/config"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// OAuthUser is the identity returned by the provider.
type OAuthUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// OAuthProvider runs the authorization-code flow against one provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*OAuthUser, error)
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	http        *resty.Client
	userinfoURL string
	logger      *zap.Logger
}

func NewGoogleProvider(cfg config.OAuthConfig, logger *zap.Logger) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		http: resty.New().
			SetTimeout(10*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500*time.Millisecond).
			SetHeader("Accept", "application/json"),
		userinfoURL: googleUserinfoURL,
		logger:      logger,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*OAuthUser, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		p.logger.Warn("google code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	var user OAuthUser
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get(p.userinfoURL)
	if err != nil {
		p.logger.Error("google userinfo call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	if resp.IsError() {
		p.logger.Error("google userinfo returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode())
	}
	if user.Email == "" {
		return nil, fmt.Errorf("google userinfo has no email")
	}

	p.logger.Info("google user resolved", zap.String("subject", user.Subject), zap.Bool("email_verified", user.EmailVerified))
	return &user, nil
}
