package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const firebaseCredentialsFileEnv = "FIREBASE_CREDENTIALS_FILE"

// service account JSON field and the variable it is read from, in file order
var firebaseServiceAccountFields = []struct {
	key string
	env string
}{
	{"type", "FIREBASE_TYPE"},
	{"project_id", "FIREBASE_PROJECT_ID"},
	{"private_key_id", "FIREBASE_PRIVATE_KEY_ID"},
	{"private_key", "FIREBASE_PRIVATE_KEY"},
	{"client_email", "FIREBASE_CLIENT_EMAIL"},
	{"client_id", "FIREBASE_CLIENT_ID"},
	{"auth_uri", "FIREBASE_AUTH_URI"},
	{"token_uri", "FIREBASE_TOKEN_URI"},
	{"auth_provider_x509_cert_url", "FIREBASE_AUTH_PROVIDER_X509_CERT_URL"},
	{"client_x509_cert_url", "FIREBASE_CLIENT_X509_CERT_URL"},
	{"universe_domain", "FIREBASE_UNIVERSE_DOMAIN"},
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	serviceAccount  map[string]string
}

func LoadFirebaseConfig() *FirebaseConfig {
	account := make(map[string]string, len(firebaseServiceAccountFields))
	for _, f := range firebaseServiceAccountFields {
		if v := os.Getenv(f.env); v != "" {
			account[f.key] = v
		}
	}

	return &FirebaseConfig{
		CredentialsFile: os.Getenv(firebaseCredentialsFileEnv),
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		serviceAccount:  account,
	}
}

// CredentialsJSON assembles a service account key from FIREBASE_* variables.
// Escaped "\n" sequences in the private key are turned into newlines.
func (c *FirebaseConfig) CredentialsJSON() ([]byte, error) {
	var missing []string
	for _, f := range firebaseServiceAccountFields {
		if c.serviceAccount[f.key] == "" {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrFirebaseNotConfigured, strings.Join(missing, ", "))
	}

	account := make(map[string]string, len(c.serviceAccount))
	for k, v := range c.serviceAccount {
		account[k] = v
	}
	account["private_key"] = strings.ReplaceAll(account["private_key"], `\n`, "\n")

	return json.Marshal(account)
}

func (c *FirebaseConfig) Validate() error {
	if c == nil {
		return ErrFirebaseNotConfigured
	}
	if c.CredentialsFile != "" {
		return nil
	}
	_, err := c.CredentialsJSON()
	return err
}
