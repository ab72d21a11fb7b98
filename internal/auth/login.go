package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/version"
)

// Reauthorizer acquires a brand-new credential set without a refresh token.
type Reauthorizer interface {
	Reauthorize(ctx context.Context) (*Credentials, error)
}

// ErrLoginUnavailable is returned when the account has no username/password.
var ErrLoginUnavailable = errors.New("re-authorization requires username and password in config.yaml")

// LoginFlow performs Central's three-step API login:
// user login (session + CSRF cookies), authorization code grant, code exchange.
type LoginFlow struct {
	account    *config.Account
	httpClient *http.Client
}

var _ Reauthorizer = (*LoginFlow)(nil)

// NewLoginFlow creates a login flow for account.
func NewLoginFlow(account *config.Account, httpClient *http.Client) *LoginFlow {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LoginFlow{account: account, httpClient: httpClient}
}

// Reauthorize runs the full flow and returns the issued credentials.
func (l *LoginFlow) Reauthorize(ctx context.Context) (*Credentials, error) {
	if l.account.Username == "" || l.account.Password == "" {
		return nil, ErrLoginUnavailable
	}

	csrf, session, err := l.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	code, err := l.authCode(ctx, csrf, session)
	if err != nil {
		return nil, fmt.Errorf("authorization code: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.httpClient)
	tok, err := OAuthConfig(l.account).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", describeTokenError(err))
	}
	return FromToken(tok), nil
}

func (l *LoginFlow) login(ctx context.Context) (csrf, session string, err error) {
	q := url.Values{"client_id": {l.account.ClientID}}
	body := map[string]string{
		"username": l.account.Username,
		"password": l.account.Password,
	}

	resp, err := l.postJSON(ctx, "/oauth2/authorize/central/api/login", q, body, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", statusError(resp)
	}
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "csrftoken":
			csrf = c.Value
		case "session":
			session = c.Value
		}
	}
	if csrf == "" || session == "" {
		return "", "", errors.New("login response did not set session cookies")
	}
	return csrf, session, nil
}

func (l *LoginFlow) authCode(ctx context.Context, csrf, session string) (string, error) {
	q := url.Values{
		"client_id":     {l.account.ClientID},
		"response_type": {"code"},
		"scope":         {"all"},
	}
	headers := http.Header{
		"X-CSRF-Token": {csrf},
		"Cookie":       {"session=" + session},
	}

	resp, err := l.postJSON(ctx, "/oauth2/authorize/central/api", q, map[string]string{"customer_id": l.account.CustomerID}, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	var out struct {
		AuthCode string `json:"auth_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.AuthCode == "" {
		return "", errors.New("response carried no auth_code")
	}
	return out.AuthCode, nil
}

func (l *LoginFlow) postJSON(ctx context.Context, path string, q url.Values, body any, headers http.Header) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	u := l.account.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range headers {
		req.Header[k] = v
	}
	return l.httpClient.Do(req)
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(b))
}
