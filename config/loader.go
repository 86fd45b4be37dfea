package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads path on top of Default, applies KURO_* overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		expanded, err := expandEnv(raw)
		if err != nil {
			return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
		}
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var errs []error
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("config: loading %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// expandEnv replaces ${VAR} and ${VAR:-default} in raw YAML. Variables
// with neither a value nor a default are reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error
	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if len(subs) > 2 && subs[2] != nil {
			return subs[2]
		}
		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})
	return result, errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"KURO_DATA_DIR":         &cfg.DataDir,
		"KURO_STORAGE_DRIVER":   &cfg.Storage.Driver,
		"KURO_STORAGE_DSN":      &cfg.Storage.DSN,
		"KURO_STORAGE_DATABASE": &cfg.Storage.Database,
		"KURO_WEB_BASE_URL":     &cfg.Web.BaseURL,
		"KURO_LOG_LEVEL":        &cfg.Log.Level,
		"KURO_LOG_FILE":         &cfg.Log.File,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	var errs []error
	flags := map[string]*bool{
		"KURO_CLASSIFIER_ENABLED": &cfg.Classifier.Enabled,
		"KURO_WEB_ENABLED":        &cfg.Web.Enabled,
	}
	for name, dst := range flags {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
			continue
		}
		*dst = b
	}
	if os.Getenv("KURO_DISABLE_CLASSIFIER") == "1" {
		cfg.Classifier.Enabled = false
	}
	return errors.Join(errs...)
}
