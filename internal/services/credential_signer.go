package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"

	"github.com/homeservices/mediasync/internal/models"
)

const (
	// DefaultTokenURL is used when the service account JSON has no token_uri
	DefaultTokenURL = google.JWTTokenURL

	assertionLifetime = time.Hour
)

// Authenticator turns a service credential into an authorized HTTP client
type Authenticator interface {
	Authorize(ctx context.Context, cred *models.ServiceCredential) (*http.Client, error)
}

// TokenExchangeError is a non-2xx answer from the token endpoint
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// CredentialSigner mints provider access tokens from a service-account key
// using a signed RS256 assertion and the jwt-bearer grant.
type CredentialSigner struct {
	httpClient *http.Client
	scopes     []string
}

// NewCredentialSigner creates a signer requesting scopes. httpClient carries the
// token exchange and is the base transport of authorized clients.
func NewCredentialSigner(httpClient *http.Client, scopes []string) *CredentialSigner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CredentialSigner{
		httpClient: httpClient,
		scopes:     scopes,
	}
}

// jwtConfig describes the assertion minted for cred
func (s *CredentialSigner) jwtConfig(cred *models.ServiceCredential) *oauthjwt.Config {
	return &oauthjwt.Config{
		Email:        cred.ClientEmail,
		PrivateKey:   []byte(cred.PrivateKey),
		PrivateKeyID: cred.PrivateKeyID,
		Scopes:       append([]string(nil), s.scopes...),
		TokenURL:     tokenURL(cred),
		Expires:      assertionLifetime,
	}
}

// Token exchanges a fresh assertion for an access token. Any non-2xx response is
// returned as *TokenExchangeError; there is no retry.
func (s *CredentialSigner) Token(ctx context.Context, cred *models.ServiceCredential) (*oauth2.Token, error) {
	return exchange(s.jwtConfig(cred).TokenSource(s.clientContext(ctx)))
}

// Authorize mints a token now, failing fast, and returns a client that presents it.
// The client re-mints only if a run outlives the token.
func (s *CredentialSigner) Authorize(ctx context.Context, cred *models.ServiceCredential) (*http.Client, error) {
	ctx = s.clientContext(ctx)
	src := s.jwtConfig(cred).TokenSource(ctx)

	tok, err := exchange(src)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

func (s *CredentialSigner) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func exchange(src oauth2.TokenSource) (*oauth2.Token, error) {
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &TokenExchangeError{
				StatusCode: re.Response.StatusCode,
				Body:       strings.TrimSpace(string(re.Body)),
			}
		}
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	return tok, nil
}

func tokenURL(cred *models.ServiceCredential) string {
	if cred.TokenURI != "" {
		return cred.TokenURI
	}
	return DefaultTokenURL
}
