package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/rolectl/internal/catalog"
	"github.com/danmuck/rolectl/internal/pkgmgr"
)

const EnvConfigPath = "ROLECTL_CONFIG"

// Config is the resolved rolectl configuration.
type Config struct {
	StateFile      string
	JournalFile    string
	Catalog        CatalogConfig
	PackageManager pkgmgr.CommandConfig
}

type CatalogConfig struct {
	BaseURL string
	Index   string
	Timeout time.Duration
	Retries int
}

type fileConfig struct {
	StateFile      string             `toml:"state_file"`
	JournalFile    string             `toml:"journal_file"`
	Catalog        fileCatalog        `toml:"catalog"`
	PackageManager filePackageManager `toml:"package_manager"`
}

type fileCatalog struct {
	BaseURL string `toml:"base_url"`
	Index   string `toml:"index"`
	Timeout string `toml:"timeout"`
	Retries int    `toml:"retries"`
}

type filePackageManager struct {
	Install   string `toml:"install"`
	Uninstall string `toml:"uninstall"`
	Privilege string `toml:"privilege"`
}

// Default returns the built-in configuration rooted at home.
func Default(home string) Config {
	return Config{
		StateFile:   filepath.Join(home, ".roles", "roles.cnf"),
		JournalFile: filepath.Join(home, ".roles", "journal.db"),
		Catalog: CatalogConfig{
			BaseURL: catalog.DefaultBaseURL,
			Index:   catalog.DefaultIndex,
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		PackageManager: pkgmgr.DefaultCommandConfig(),
	}
}

// DefaultPath returns the config path from ROLECTL_CONFIG or
// ~/.roles/rolectl.toml.
func DefaultPath(home string) string {
	if fromEnv := strings.TrimSpace(os.Getenv(EnvConfigPath)); fromEnv != "" {
		return fromEnv
	}
	return filepath.Join(home, ".roles", "rolectl.toml")
}

// Load reads path over the defaults. A missing file yields the defaults
// unless required is set.
func Load(path string, home string, required bool) (Config, error) {
	cfg := Default(home)

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if errors.Is(err, os.ErrNotExist) && !required {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load rolectl config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("rolectl config (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("state_file") {
		cfg.StateFile = expandHome(strings.TrimSpace(raw.StateFile), home)
	}
	if meta.IsDefined("journal_file") {
		cfg.JournalFile = expandHome(strings.TrimSpace(raw.JournalFile), home)
	}
	if meta.IsDefined("catalog", "base_url") {
		cfg.Catalog.BaseURL = strings.TrimSpace(raw.Catalog.BaseURL)
	}
	if meta.IsDefined("catalog", "index") {
		cfg.Catalog.Index = strings.TrimSpace(raw.Catalog.Index)
	}
	if meta.IsDefined("catalog", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Catalog.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse catalog.timeout: %w", err)
		}
		cfg.Catalog.Timeout = d
	}
	if meta.IsDefined("catalog", "retries") {
		cfg.Catalog.Retries = raw.Catalog.Retries
	}
	if meta.IsDefined("package_manager", "install") {
		cfg.PackageManager.Install = raw.PackageManager.Install
	}
	if meta.IsDefined("package_manager", "uninstall") {
		cfg.PackageManager.Uninstall = raw.PackageManager.Uninstall
	}
	if meta.IsDefined("package_manager", "privilege") {
		cfg.PackageManager.Privilege = raw.PackageManager.Privilege
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("rolectl config (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.StateFile) == "" {
		return fmt.Errorf("state_file is required")
	}
	if strings.TrimSpace(cfg.Catalog.BaseURL) == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if cfg.Catalog.Timeout < 0 {
		return fmt.Errorf("catalog.timeout must not be negative")
	}
	if cfg.Catalog.Retries < 0 {
		return fmt.Errorf("catalog.retries must not be negative")
	}
	if strings.TrimSpace(cfg.PackageManager.Install) == "" {
		return fmt.Errorf("package_manager.install is required")
	}
	if strings.TrimSpace(cfg.PackageManager.Uninstall) == "" {
		return fmt.Errorf("package_manager.uninstall is required")
	}
	return nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
