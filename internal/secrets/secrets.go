// Package secrets stores provider credentials in the OS keychain. Keys
// never land in the config file; config only carries which provider is
// selected.
package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the engine's secrets in the OS keychain.
const KeyringService = "leadscout"

// Account names for the secrets the engine knows about.
const (
	AccountApifyToken   = "apify:token"
	AccountIcypeasKey   = "icypeas:api-key"
	AccountCrawlToken   = "crawl4ai:api-token"
	AccountIMAPPassword = "mailalert:imap-password"
	AccountCaptainData  = "captain-data:api-key"
)

// envFallbacks let headless deployments (no keychain daemon) inject
// secrets through the environment.
var envFallbacks = map[string]string{
	AccountApifyToken:   "LEADSCOUT_APIFY_TOKEN",
	AccountIcypeasKey:   "LEADSCOUT_ICYPEAS_API_KEY",
	AccountCrawlToken:   "LEADSCOUT_CRAWL4AI_TOKEN",
	AccountIMAPPassword: "LEADSCOUT_IMAP_PASSWORD",
	AccountCaptainData:  "LEADSCOUT_CAPTAIN_DATA_KEY",
}

// Get reads a secret from the keychain, falling back to the secret's
// environment variable. An empty string with nil error means unset.
func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(KeyringService, account)
	if err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if env := envFallbacks[account]; env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", err
	}
	return "", nil
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Known reports whether account is one the engine manages. The secrets API
// refuses arbitrary account names so the keychain namespace stays bounded.
func Known(account string) bool {
	_, ok := envFallbacks[account]
	return ok
}
