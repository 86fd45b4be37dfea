package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct tag rules and the cross-field checks and
// reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("config: %s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Storage.DSN == "" {
			errs = append(errs, errors.New("config: storage.dsn is required for postgres"))
		}
	case DriverMongo:
		if cfg.Storage.DSN == "" {
			errs = append(errs, errors.New("config: storage.dsn is required for mongodb"))
		}
		if cfg.Storage.Database == "" {
			errs = append(errs, errors.New("config: storage.database is required for mongodb"))
		}
	}

	if cfg.Web.Enabled && cfg.Web.BaseURL == "" {
		errs = append(errs, errors.New("config: web.base_url is required when web lookup is enabled"))
	}

	return errors.Join(errs...)
}
