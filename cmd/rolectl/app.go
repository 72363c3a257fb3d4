package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/rolectl/internal/catalog"
	"github.com/danmuck/rolectl/internal/config"
	"github.com/danmuck/rolectl/internal/journal"
	"github.com/danmuck/rolectl/internal/manager"
	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/store"
	"github.com/rs/zerolog/log"
)

// loadConfig reads the config file. An explicitly named file must exist.
func loadConfig(opts *globalOptions) (config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	path := strings.TrimSpace(opts.configPath)
	required := path != "" || strings.TrimSpace(os.Getenv(config.EnvConfigPath)) != ""
	if path == "" {
		path = config.DefaultPath(home)
	}
	cfg, err := config.Load(path, home, required)
	if err != nil {
		return config.Config{}, err
	}
	log.Debug().Str("config", path).Str("state_file", cfg.StateFile).Msg("configuration loaded")
	return cfg, nil
}

type managerOptions struct {
	dryRun  bool
	journal bool
}

// openManager wires catalog, store, package manager, and optionally the
// journal. The returned close func is always non-nil.
func openManager(cfg config.Config, mo managerOptions) (*manager.Manager, func(), error) {
	noop := func() {}

	cat, err := catalog.Open(catalog.Config{
		BaseURL: cfg.Catalog.BaseURL,
		Index:   cfg.Catalog.Index,
		Timeout: cfg.Catalog.Timeout,
		Retries: cfg.Catalog.Retries,
	})
	if err != nil {
		return nil, noop, err
	}
	invoker, err := pkgmgr.NewCommandInvoker(pkgmgr.CommandInvokerConfig{Commands: cfg.PackageManager})
	if err != nil {
		return nil, noop, err
	}

	mcfg := manager.Config{
		Catalog:  cat,
		Store:    store.NewFile(cfg.StateFile),
		Executor: pkgmgr.NewExecutor(invoker),
		DryRun:   mo.dryRun,
	}
	closeFn := noop
	if mo.journal && cfg.JournalFile != "" {
		j, err := journal.Open(cfg.JournalFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.JournalFile).Msg("run journal unavailable; continuing without it")
		} else {
			mcfg.Journal = j
			closeFn = func() {
				if err := j.Close(); err != nil {
					log.Warn().Err(err).Msg("close run journal")
				}
			}
		}
	}

	m, err := manager.New(mcfg)
	if err != nil {
		closeFn()
		return nil, noop, err
	}
	return m, closeFn, nil
}
