package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/config"
)

// Outcome classifies a refresh attempt.
type Outcome int

const (
	// RefreshSucceeded carries a complete new credential set.
	RefreshSucceeded Outcome = iota
	// RefreshFailed means the token endpoint rejected the refresh or was unreachable.
	RefreshFailed
	// ManualEntryRequired means there was no refresh token to try.
	ManualEntryRequired
)

func (o Outcome) String() string {
	switch o {
	case RefreshSucceeded:
		return "succeeded"
	case RefreshFailed:
		return "failed"
	case ManualEntryRequired:
		return "manual_entry_required"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RefreshResult is the result of one refresh attempt.
type RefreshResult struct {
	Outcome     Outcome
	Credentials *Credentials // set only when Outcome is RefreshSucceeded
	Reason      error
}

// OK reports whether the refresh produced credentials.
func (r RefreshResult) OK() bool {
	return r.Outcome == RefreshSucceeded && r.Credentials != nil
}

// Succeeded builds a successful result.
func Succeeded(creds *Credentials) RefreshResult {
	return RefreshResult{Outcome: RefreshSucceeded, Credentials: creds}
}

// Failed builds a failed result.
func Failed(reason error) RefreshResult {
	return RefreshResult{Outcome: RefreshFailed, Reason: reason}
}

// ManualEntry builds a result asking for operator-supplied tokens.
func ManualEntry(reason error) RefreshResult {
	return RefreshResult{Outcome: ManualEntryRequired, Reason: reason}
}

// ErrNoRefreshToken is the reason attached to ManualEntryRequired results.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Refresher exchanges a refresh token for a new credential set. It never
// persists anything and never retries.
type Refresher interface {
	Refresh(ctx context.Context, current *Credentials) RefreshResult
}

// OAuthRefresher refreshes against the account's /oauth2/token endpoint.
type OAuthRefresher struct {
	account    *config.Account
	httpClient *http.Client
}

var _ Refresher = (*OAuthRefresher)(nil)

// NewOAuthRefresher creates a refresher for account using httpClient.
func NewOAuthRefresher(account *config.Account, httpClient *http.Client) *OAuthRefresher {
	return &OAuthRefresher{account: account, httpClient: httpClient}
}

// OAuthConfig returns the oauth2 client configuration for an account.
// Central expects client credentials as request parameters.
func OAuthConfig(account *config.Account) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  account.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Refresh posts grant_type=refresh_token and returns the complete new set.
func (r *OAuthRefresher) Refresh(ctx context.Context, current *Credentials) RefreshResult {
	if current == nil || current.RefreshToken == "" {
		return ManualEntry(ErrNoRefreshToken)
	}

	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	// A token with no access token is always invalid, forcing a refresh.
	src := OAuthConfig(r.account).TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return Failed(describeTokenError(err))
	}
	if tok.AccessToken == "" {
		return Failed(errors.New("token endpoint returned no access_token"))
	}
	return Succeeded(FromToken(tok))
}

// describeTokenError flattens an oauth2 error into a one-line reason.
func describeTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		code := re.ErrorCode
		if code == "" {
			code = "error"
		}
		if re.ErrorDescription != "" {
			return fmt.Errorf("token endpoint returned %d: %s: %s", status, code, re.ErrorDescription)
		}
		return fmt.Errorf("token endpoint returned %d: %s", status, code)
	}
	return fmt.Errorf("token request failed: %w", err)
}
