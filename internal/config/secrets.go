package config

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Getter is satisfied by paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ResolveSecrets fills empty credentials from Parameter Store under prefix.
// Lookups are best effort: a parameter that cannot be read leaves the field
// empty, and the workflow reports it as missing when it runs.
func (c *Config) ResolveSecrets(ctx context.Context, getter Getter) {
	if getter == nil || c.SSMParamPrefix == "" {
		return
	}
	creds := &c.Credentials
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"twitter-consumer-key", &creds.ConsumerKey},
		{"twitter-consumer-secret", &creds.ConsumerSecret},
		{"twitter-access-token", &creds.AccessToken},
		{"twitter-access-token-secret", &creds.AccessSecret},
		{"google-sheets-credentials", &creds.SheetsJSON},
	} {
		if *p.dst != "" {
			continue
		}
		path := c.SSMParamPrefix + "/" + p.name
		start := time.Now()
		v, err := getter.GetParameter(ctx, path)
		if err != nil {
			log.Warn().Err(err).Str("param", path).Msg("Secret not loaded from SSM")
			continue
		}
		*p.dst = v
		log.Debug().Str("param", path).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	}
}
