// Package auth manages Central OAuth credentials: persistence, refresh,
// manual token entry and the username/password re-authorization flow.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the access/refresh token set for one account.
type Credentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Authorization returns the Authorization header value.
func (c *Credentials) Authorization() string {
	tokenType := c.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + c.AccessToken
}

// Expired reports whether ExpiresAt is known and has passed.
func (c *Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Equal reports whether both sets carry the same tokens and expiry.
func (c *Credentials) Equal(o *Credentials) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.AccessToken != o.AccessToken || c.RefreshToken != o.RefreshToken || c.TokenType != o.TokenType {
		return false
	}
	if c.ExpiresAt == nil || o.ExpiresAt == nil {
		return c.ExpiresAt == o.ExpiresAt
	}
	return c.ExpiresAt.Equal(*o.ExpiresAt)
}

// FromToken converts an oauth2 token into a complete credential set.
func FromToken(tok *oauth2.Token) *Credentials {
	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC().Truncate(time.Second)
		creds.ExpiresAt = &exp
	}
	return creds
}

// ParseTokenInput accepts the JSON blob from Central's "Download Tokens"
// dialog, or an access token and refresh token separated by whitespace.
func ParseTokenInput(input string) (*Credentials, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("no tokens entered")
	}

	if strings.HasPrefix(input, "{") {
		var blob struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			TokenType    string `json:"token_type"`
			ExpiresIn    int64  `json:"expires_in"`
		}
		if err := json.Unmarshal([]byte(input), &blob); err != nil {
			return nil, fmt.Errorf("invalid token JSON: %w", err)
		}
		if blob.AccessToken == "" || blob.RefreshToken == "" {
			return nil, errors.New("token JSON must contain access_token and refresh_token")
		}
		creds := &Credentials{
			AccessToken:  blob.AccessToken,
			RefreshToken: blob.RefreshToken,
			TokenType:    blob.TokenType,
		}
		if blob.ExpiresIn > 0 {
			exp := time.Now().UTC().Add(time.Duration(blob.ExpiresIn) * time.Second).Truncate(time.Second)
			creds.ExpiresAt = &exp
		}
		return creds, nil
	}

	fields := strings.Fields(input)
	if len(fields) != 2 {
		return nil, errors.New("expected token JSON or \"<access_token> <refresh_token>\"")
	}
	return &Credentials{AccessToken: fields[0], RefreshToken: fields[1]}, nil
}
