package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields a token usable against the GitHub API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty github token")
	}
	return string(t), nil
}

// AppAuth mints short-lived installation tokens for a GitHub App. Tokens are
// cached until shortly before expiry; GitHub installation tokens live one
// hour.
type AppAuth struct {
	AppID      string
	PrivateKey string // PEM-encoded RSA key
	Repo       string // owner/name, used to resolve the installation
	APIBase    string // defaults to https://api.github.com

	HTTPClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Token returns a valid installation token, reusing the cached one while it
// has more than a minute of life left.
func (a *AppAuth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.expires) > time.Minute {
		return a.token, nil
	}

	appJWT, err := a.signJWT()
	if err != nil {
		return "", err
	}

	installationID, err := a.installationID(ctx, appJWT)
	if err != nil {
		return "", err
	}

	token, expires, err := a.installationToken(ctx, appJWT, installationID)
	if err != nil {
		return "", err
	}

	a.token = token
	a.expires = expires
	return token, nil
}

// signJWT creates the RS256 app JWT GitHub requires for installation
// endpoints.
func (a *AppAuth) signJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID %q: %w", a.AppID, err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app JWT: %w", err)
	}
	return signed, nil
}

func (a *AppAuth) installationID(ctx context.Context, appJWT string) (int64, error) {
	var result struct {
		ID int64 `json:"id"`
	}
	url := fmt.Sprintf("%s/repos/%s/installation", a.apiBase(), a.Repo)
	if err := a.apiGET(ctx, url, appJWT, &result); err != nil {
		return 0, fmt.Errorf("failed to resolve installation for %s: %w", a.Repo, err)
	}
	return result.ID, nil
}

func (a *AppAuth) installationToken(ctx context.Context, appJWT string, installationID int64) (string, time.Time, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.apiBase(), installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, err
	}
	setAppHeaders(req, appJWT)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("installation token request failed: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	return result.Token, result.ExpiresAt, nil
}

func (a *AppAuth) apiGET(ctx context.Context, url, appJWT string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	setAppHeaders(req, appJWT)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error: %d - %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *AppAuth) apiBase() string {
	if a.APIBase != "" {
		return a.APIBase
	}
	return "https://api.github.com"
}

func (a *AppAuth) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func setAppHeaders(req *http.Request, appJWT string) {
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
