// Package auth obtains Strava OAuth tokens. The token is kept in a local file
// together with the scope it was granted for; a missing file or a narrower
// scope falls back to the manual authorization-code flow.
package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"strava_sync/internal/config"
)

var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.strava.com/oauth/authorize",
	TokenURL:  "https://www.strava.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const (
	ScopeRead      = "activity:read_all"
	ScopeReadWrite = "activity:read,activity:write"
)

type Provider struct {
	oauth     *oauth2.Config
	tokenFile string
	prompt    io.Reader
	out       io.Writer
	logger    *slog.Logger
}

// NewProvider builds a provider that asks for the authorization code on
// prompt and prints the authorization URL to out.
func NewProvider(cfg config.AuthConfig, prompt io.Reader, out io.Writer, logger *slog.Logger) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     Endpoint,
		},
		tokenFile: cfg.TokenFile,
		prompt:    prompt,
		out:       out,
		logger:    logger.With("component", "auth"),
	}
}

type storedToken struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scope        string    `json:"scope"`
}

// Client returns an HTTP client authorized for scope (comma separated, as
// Strava expects). Access tokens are refreshed automatically while it is used.
func (p *Provider) Client(ctx context.Context, scope string) (*http.Client, error) {
	token, err := p.Token(ctx, scope)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, p.oauth.TokenSource(ctx, token)), nil
}

// Token acquires a token for scope and saves it to the token file.
func (p *Provider) Token(ctx context.Context, scope string) (*oauth2.Token, error) {
	saved, err := p.load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("ignoring unreadable token file", "file", p.tokenFile, "error", err)
	}

	var token *oauth2.Token
	if saved == nil || !scopeIncluded(scope, saved.Scope) {
		code, err := p.askCode(scope)
		if err != nil {
			return nil, err
		}
		token, err = p.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		p.logger.Info("authorized with new code", "scope", scope)
	} else {
		// no access token, so the source goes straight to the refresh grant
		token, err = p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: saved.RefreshToken}).Token()
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		p.logger.Debug("refreshed token", "expires_at", token.Expiry)
	}

	if err := p.save(token, scope); err != nil {
		return nil, err
	}
	return token, nil
}

func (p *Provider) askCode(scope string) (string, error) {
	url := p.oauth.AuthCodeURL("strava_sync",
		oauth2.SetAuthURLParam("scope", scope),
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	)
	fmt.Fprintf(p.out, "Please open this URL to authenticate: %s\n", url)
	fmt.Fprint(p.out, "Type the code of the return URL here: ")

	scanner := bufio.NewScanner(p.prompt)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read authorization code: %w", err)
		}
		return "", errors.New("no authorization code given")
	}

	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return "", errors.New("no authorization code given")
	}
	return code, nil
}

func (p *Provider) load() (*storedToken, error) {
	data, err := os.ReadFile(p.tokenFile)
	if err != nil {
		return nil, err
	}

	var token storedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if token.RefreshToken == "" {
		return nil, errors.New("token file has no refresh token")
	}
	return &token, nil
}

func (p *Provider) save(token *oauth2.Token, scope string) error {
	data, err := json.Marshal(storedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scope:        scope,
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(p.tokenFile, data, 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// scopeIncluded reports whether every scope in want is part of granted.
func scopeIncluded(want, granted string) bool {
	have := make(map[string]bool)
	for _, s := range strings.Split(granted, ",") {
		have[strings.TrimSpace(s)] = true
	}
	for _, s := range strings.Split(want, ",") {
		if !have[strings.TrimSpace(s)] {
			return false
		}
	}
	return true
}
