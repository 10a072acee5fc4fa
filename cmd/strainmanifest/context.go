package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"strainmanifest/internal/config"
	"strainmanifest/internal/failure"
	"strainmanifest/internal/resultsdir"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = failure.Wrap(failure.ErrConfiguration, "config", "load", "", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// exitCode maps failures to distinct process exit codes so wrappers can
// react to the failure class without parsing messages.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, failure.ErrConfiguration), errors.Is(err, failure.ErrValidation):
		return 2
	case errors.Is(err, failure.ErrRetrieval):
		return 3
	case errors.Is(err, failure.ErrMerge):
		return 4
	case errors.Is(err, failure.ErrRegistryCorruption), errors.Is(err, failure.ErrInconsistentState):
		return 5
	case errors.Is(err, resultsdir.ErrLocked):
		return 6
	default:
		return 1
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
