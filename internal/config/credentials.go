package config

import (
	"fmt"
	"strings"
)

// Credentials groups every secret the workflows depend on.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string

	StoreBackend string
	SheetsJSON   string
	SQLitePath   string
}

// MissingError lists the environment variables that were empty.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing credentials: %s", strings.Join(e.Vars, ", "))
}

// MissingPlatform returns the names of empty platform credential variables.
func (c Credentials) MissingPlatform() []string {
	var missing []string
	for _, kv := range []struct{ name, val string }{
		{"TWITTER_CONSUMER_KEY", c.ConsumerKey},
		{"TWITTER_CONSUMER_SECRET", c.ConsumerSecret},
		{"TWITTER_ACCESS_TOKEN", c.AccessToken},
		{"TWITTER_ACCESS_TOKEN_SECRET", c.AccessSecret},
	} {
		if kv.val == "" {
			missing = append(missing, kv.name)
		}
	}
	return missing
}

// MissingStore returns the name of the empty row-store credential, if any.
func (c Credentials) MissingStore() []string {
	switch c.StoreBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return []string{"SQLITE_PATH"}
		}
	default:
		if c.SheetsJSON == "" {
			return []string{"GOOGLE_SHEETS_CREDENTIALS"}
		}
	}
	return nil
}

// ValidateForPublish reports every missing secret the publish workflow needs.
func (c Credentials) ValidateForPublish() error {
	missing := append(c.MissingPlatform(), c.MissingStore()...)
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}
