// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibfetch/internal/batch"
	"github.com/pdiddy/bibfetch/internal/crossref"
	"github.com/pdiddy/bibfetch/pkg/types"
)

// Config keys and the fetch flags bound to them.
const (
	keyBaseURL   = "registry.base_url"
	keyTimeout   = "registry.timeout"
	keyRate      = "registry.rate"
	keyMailto    = "registry.mailto"
	keyJobs      = "batch.jobs"
	keyValidate  = "batch.validate"
	keyExtension = "batch.extension"
	keyHistory   = "history.path"
)

var flagKeys = map[string]string{
	"registry": keyBaseURL,
	"timeout":  keyTimeout,
	"rate":     keyRate,
	"jobs":     keyJobs,
	"validate": keyValidate,
	"history":  keyHistory,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBaseURL, crossref.DefaultBaseURL)
	v.SetDefault(keyTimeout, "0s")
	v.SetDefault(keyRate, 0.0)
	v.SetDefault(keyMailto, "")
	v.SetDefault(keyJobs, 1)
	v.SetDefault(keyValidate, false)
	v.SetDefault(keyExtension, batch.DefaultExtension)
	v.SetDefault(keyHistory, "")
}

// bindFetchFlags binds the running command's flags to their config keys.
// Binding happens per invocation because every fetch subcommand owns its
// own copy of the flags.
func bindFetchFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig decodes the merged defaults, config file, environment and
// flags into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Batch.Jobs < 1 {
		cfg.Batch.Jobs = 1
	}
	if cfg.Registry.Rate < 0 {
		return types.Config{}, fmt.Errorf("registry.rate must not be negative, got %v", cfg.Registry.Rate)
	}
	if cfg.Registry.Timeout < 0 {
		return types.Config{}, fmt.Errorf("registry.timeout must not be negative, got %v", cfg.Registry.Timeout)
	}
	return cfg, nil
}
