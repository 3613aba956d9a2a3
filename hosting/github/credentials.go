package github

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v68/github"

	"github.com/sceneindex/submitd/hosting"
)

// assertionTTL bounds replay risk: the signed assertion
// expires nine minutes after it is minted.
const assertionTTL = 9 * time.Minute

// AppConfig holds the GitHub App identity used to mint
// installation tokens.
type AppConfig struct {
	// AppID is the GitHub App identifier.
	AppID string
	// InstallationID identifies the installation of
	// the app on the content repository.
	InstallationID int64
	// PrivateKeyPEM is the app's RSA private key in
	// PEM form.
	PrivateKeyPEM []byte
	// APIBaseURL overrides the GitHub API base URL
	// for the token exchange. Leave empty for
	// api.github.com.
	APIBaseURL string
}

// AppCredentials mints short-lived installation tokens
// by signing an app identity assertion and exchanging
// it against the GitHub API. A fresh token is minted
// per submission; nothing is cached.
//
// Pattern: Strategy -- implements hosting.Credentials.
type AppCredentials struct {
	appID          string
	installationID int64
	key            *rsa.PrivateKey
	apiBaseURL     string
}

// NewAppCredentials validates cfg, parses the private
// key, and returns ready-to-use credentials. Missing or
// unparseable identity material is an auth_config_error.
func NewAppCredentials(
	cfg AppConfig,
) (*AppCredentials, error) {
	if cfg.AppID == "" {
		return nil, &hosting.AuthError{
			Code:    hosting.CodeAuthConfig,
			Message: "app id must be set",
		}
	}

	if cfg.InstallationID == 0 {
		return nil, &hosting.AuthError{
			Code:    hosting.CodeAuthConfig,
			Message: "installation id must be set",
		}
	}

	if len(cfg.PrivateKeyPEM) == 0 {
		return nil, &hosting.AuthError{
			Code:    hosting.CodeAuthConfig,
			Message: "private key must be set",
		}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(
		cfg.PrivateKeyPEM,
	)
	if err != nil {
		return nil, &hosting.AuthError{
			Code: hosting.CodeAuthConfig,
			Message: "cannot parse private key: " +
				err.Error(),
		}
	}

	return &AppCredentials{
		appID:          cfg.AppID,
		installationID: cfg.InstallationID,
		key:            key,
		apiBaseURL:     cfg.APIBaseURL,
	}, nil
}

// Mint signs a time-bounded identity assertion and
// exchanges it for an installation token. The assertion
// itself is used exactly once and never reused.
func (c *AppCredentials) Mint(
	ctx context.Context,
) (string, error) {
	assertion, err := c.signAssertion()
	if err != nil {
		return "", err
	}

	client := gh.NewClient(nil).
		WithAuthToken(assertion)

	if c.apiBaseURL != "" {
		client, err = client.WithEnterpriseURLs(
			c.apiBaseURL, c.apiBaseURL,
		)
		if err != nil {
			return "", &hosting.AuthError{
				Code: hosting.CodeAuthConfig,
				Message: "invalid api base url: " +
					err.Error(),
			}
		}
	}

	token, resp, err := client.Apps.CreateInstallationToken(
		ctx, c.installationID, nil,
	)
	if err != nil {
		ae := &hosting.AuthError{
			Code:    hosting.CodeAuthFailed,
			Message: "token exchange failed",
		}

		if resp != nil {
			ae.Status = resp.StatusCode
		}

		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) {
			ae.Body = ghErr.Message
		} else {
			ae.Body = err.Error()
		}

		return "", ae
	}

	if token.GetToken() == "" {
		return "", &hosting.AuthError{
			Code:    hosting.CodeAuthFailed,
			Message: "exchange response missing token",
		}
	}

	return token.GetToken(), nil
}

// signAssertion builds the RS256-signed app identity
// assertion: issuer = app id, issued now, expiring
// after assertionTTL.
func (c *AppCredentials) signAssertion() (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    c.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
	}

	assertion, err := jwt.NewWithClaims(
		jwt.SigningMethodRS256, claims,
	).SignedString(c.key)
	if err != nil {
		return "", &hosting.AuthError{
			Code: hosting.CodeAuthFailed,
			Message: "cannot sign assertion: " +
				err.Error(),
		}
	}

	return assertion, nil
}
