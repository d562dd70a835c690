package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeservices/mediasync/internal/models"
)

func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	return key, string(pemBytes)
}

// tokenServer answers jwt-bearer grants after verifying the assertion signature
type tokenServer struct {
	*httptest.Server
	calls int32

	mu     sync.Mutex
	header map[string]interface{}
	claims jwt.MapClaims
}

func newTokenServer(t *testing.T, pub *rsa.PublicKey, status int) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))

		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(r.PostForm.Get("assertion"), claims, func(tok *jwt.Token) (interface{}, error) {
			return pub, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if assert.NoError(t, err) {
			ts.mu.Lock()
			ts.header, ts.claims = tok.Header, claims
			ts.mu.Unlock()
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) Calls() int32 { return atomic.LoadInt32(&ts.calls) }

func (ts *tokenServer) Assertion() (map[string]interface{}, jwt.MapClaims) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.header, ts.claims
}

func TestCredentialSigner_Token(t *testing.T) {
	key, pemKey := newTestKey(t)

	t.Run("exchanges assertion for access token", func(t *testing.T) {
		srv := newTokenServer(t, &key.PublicKey, http.StatusOK)
		signer := NewCredentialSigner(srv.Client(), DriveScopes)

		cred := &models.ServiceCredential{
			ClientEmail:  "sync@project.iam.gserviceaccount.com",
			PrivateKey:   pemKey,
			PrivateKeyID: "key-1",
			TokenURI:     srv.URL,
		}
		tok, err := signer.Token(context.Background(), cred)
		require.NoError(t, err)
		assert.Equal(t, "ya29.test-token", tok.AccessToken)
		assert.Equal(t, "Bearer", tok.TokenType)
		assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
		assert.Equal(t, int32(1), srv.Calls())

		header, claims := srv.Assertion()
		assert.Equal(t, "RS256", header["alg"])
		assert.Equal(t, "key-1", header["kid"])
		assert.Equal(t, cred.ClientEmail, claims["iss"])
		assert.Equal(t, srv.URL, claims["aud"])
		assert.Equal(t, "https://www.googleapis.com/auth/drive.readonly", claims["scope"])

		exp, err := claims.GetExpirationTime()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
	})

	t.Run("non-2xx is a token exchange error", func(t *testing.T) {
		srv := newTokenServer(t, &key.PublicKey, http.StatusUnauthorized)
		signer := NewCredentialSigner(srv.Client(), DriveScopes)

		_, err := signer.Token(context.Background(), &models.ServiceCredential{
			ClientEmail: "sync@example.com",
			PrivateKey:  pemKey,
			TokenURI:    srv.URL,
		})
		var exErr *TokenExchangeError
		require.True(t, errors.As(err, &exErr))
		assert.Equal(t, http.StatusUnauthorized, exErr.StatusCode)
		assert.Contains(t, exErr.Body, "invalid_grant")
		assert.Equal(t, int32(1), srv.Calls(), "no retry")
	})

	t.Run("unreadable key never reaches the endpoint", func(t *testing.T) {
		srv := newTokenServer(t, &key.PublicKey, http.StatusOK)
		signer := NewCredentialSigner(srv.Client(), DriveScopes)

		_, err := signer.Token(context.Background(), &models.ServiceCredential{
			ClientEmail: "sync@example.com",
			PrivateKey:  "not a key",
			TokenURI:    srv.URL,
		})
		require.Error(t, err)
		var exErr *TokenExchangeError
		assert.False(t, errors.As(err, &exErr))
		assert.Equal(t, int32(0), srv.Calls())
	})
}

func TestCredentialSigner_Authorize(t *testing.T) {
	key, pemKey := newTestKey(t)
	tokenSrv := newTokenServer(t, &key.PublicKey, http.StatusOK)

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer apiSrv.Close()

	signer := NewCredentialSigner(http.DefaultClient, DriveScopes)
	client, err := signer.Authorize(context.Background(), &models.ServiceCredential{
		ClientEmail: "sync@example.com",
		PrivateKey:  pemKey,
		TokenURI:    tokenSrv.URL,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(apiSrv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "Bearer ya29.test-token", gotAuth)
	}
	assert.Equal(t, int32(1), tokenSrv.Calls(), "token reused until expiry")
}

func TestCredentialSigner_Authorize_Rejected(t *testing.T) {
	key, pemKey := newTestKey(t)
	tokenSrv := newTokenServer(t, &key.PublicKey, http.StatusForbidden)

	signer := NewCredentialSigner(tokenSrv.Client(), DriveScopes)
	client, err := signer.Authorize(context.Background(), &models.ServiceCredential{
		ClientEmail: "sync@example.com",
		PrivateKey:  pemKey,
		TokenURI:    tokenSrv.URL,
	})
	assert.Nil(t, client)
	var exErr *TokenExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusForbidden, exErr.StatusCode)
	assert.Equal(t, int32(1), tokenSrv.Calls())
}
