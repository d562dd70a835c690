package models

// ServiceCredential is the service-account identity used to mint provider access tokens.
// It is never persisted.
type ServiceCredential struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// ErrInvalidServiceAccount is returned for malformed or incomplete service-account JSON
var ErrInvalidServiceAccount = CatalogError{"invalid service account credentials"}
