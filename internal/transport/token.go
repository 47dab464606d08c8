package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// PasswordLogin performs an OAuth2 password grant and returns a value ready
// for the authorization header, e.g. "Bearer abc". tokenURL may be relative
// to baseURL.
func PasswordLogin(ctx context.Context, client *http.Client, baseURL, tokenURL, username, password, scope string) (string, error) {
	full := tokenURL
	if u, err := url.Parse(tokenURL); err == nil && !u.IsAbs() {
		if base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/"); err == nil {
			full = base.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String()
		}
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	if s := strings.TrimSpace(scope); s != "" {
		form.Set("scope", s)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, full, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "could not build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "token request to %s", full)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("token request failed: %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read token response")
	}

	var tr tokenResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		return "", errors.Wrap(err, "token response is not json")
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return "", errors.New("token response missing access_token")
	}

	tt := strings.TrimSpace(tr.TokenType)
	if tt == "" || strings.EqualFold(tt, "bearer") {
		tt = "Bearer"
	}
	return tt + " " + tr.AccessToken, nil
}
