package services

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2/google"

	"github.com/homeservices/mediasync/internal/models"
)

// ParseServiceCredential decodes a service-account JSON key file. The key must
// be an RSA PEM block so a bad key fails before any network call.
func ParseServiceCredential(raw []byte) (*models.ServiceCredential, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, fmt.Errorf("%w: empty service account JSON", models.ErrInvalidServiceAccount)
	}

	cfg, err := google.JWTConfigFromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidServiceAccount, err)
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, fmt.Errorf("%w: client_email is required", models.ErrInvalidServiceAccount)
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("%w: private_key is required", models.ErrInvalidServiceAccount)
	}
	if _, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", models.ErrInvalidServiceAccount, err)
	}

	return &models.ServiceCredential{
		ClientEmail:  cfg.Email,
		PrivateKey:   string(cfg.PrivateKey),
		PrivateKeyID: cfg.PrivateKeyID,
		TokenURI:     cfg.TokenURL,
	}, nil
}
