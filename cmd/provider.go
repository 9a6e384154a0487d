package cmd

import (
	"fmt"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/auth/identitytoolkit"
	"github.com/conneroisu/syllabus/internal/auth/local"
	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/logging"
)

// newProvider opens the identity provider named by auth.provider. The
// returned func releases it.
func newProvider(cfg *config.Config, logger logging.Logger) (auth.Provider, func(), error) {
	switch cfg.Auth.Provider {
	case config.ProviderIdentityToolkit:
		if cfg.Auth.APIKey == "" {
			return nil, nil, fmt.Errorf("auth.api_key is required for the %s provider", cfg.Auth.Provider)
		}
		client := identitytoolkit.New(cfg.Auth.APIKey,
			identitytoolkit.WithEndpoint(cfg.Auth.Endpoint),
			identitytoolkit.WithTimeout(cfg.Auth.Timeout),
			identitytoolkit.WithLogger(logger),
		)
		return client, func() {}, nil

	case config.ProviderLocal, "":
		lc := cfg.Auth.Local
		db, err := local.Open(lc.Driver, lc.DSN)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("opening account store: %w", err)
		}
		closeDB := func() { _ = sqlDB.Close() }

		provider, err := local.New(db, lc.TokenSecret,
			local.WithTokenTTL(lc.TokenTTL),
			local.WithCodeTTL(lc.CodeTTL),
			local.WithActionURL(cfg.Auth.ActionURL),
			local.WithLogger(logger),
		)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		return provider, closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
