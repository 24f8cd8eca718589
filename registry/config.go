package registry

import (
	"fmt"

	"github.com/joshuapare/pagekit/internal/logging"
	"github.com/joshuapare/pagekit/pkg/config"
	"github.com/joshuapare/pagekit/registry/namecache"
	"github.com/joshuapare/pagekit/registry/uoid"
)

// OptionsFromConfig maps loaded configuration onto registry options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.LoadMask = uoid.LoadMask(cfg.Registry.LoadMask)
	opts.PassiveKeys = cfg.Registry.PassiveKeys
	opts.UseMmap = cfg.Registry.UseMmap
	opts.RenameDuplicates = cfg.Registry.RenameDuplicates
	opts.MaxRenameAttempts = cfg.Registry.MaxRenameAttempts
	opts.LocalOwnerID = cfg.Registry.LocalOwnerID
	opts.Release = cfg.Registry.Release
	if cfg.Registry.PagePattern != "" {
		opts.PagePattern = cfg.Registry.PagePattern
	}
	opts.DeleteBadPages = cfg.Verify.DeleteBadPages
	opts.WarnNewerPages = cfg.Verify.WarnNewerPages
	opts.DeepVerify = cfg.Verify.DeepVerify
	return opts
}

// NewFromConfig builds a registry with a configured logger, sizes the shared
// name cache and registers the pages below cfg.Registry.PageDir, if set.
func NewFromConfig(factory Factory, cfg *config.Config) (*Registry, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("registry logger: %w", err)
	}
	namecache.SetCapacity(cfg.NameCache.Capacity)

	opts := OptionsFromConfig(cfg)
	opts.Logger = logger
	r := New(factory, opts)
	if cfg.Registry.PageDir != "" {
		if _, err := r.AddPages(cfg.Registry.PageDir); err != nil {
			return nil, err
		}
	}
	return r, nil
}
