package main

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/carbontrace/internal/config"
	"github.com/rshade/carbontrace/internal/intensity"
	"github.com/rshade/carbontrace/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     zerolog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		logger:       zerolog.Nop(),
	}
}

// ensureConfig loads the config file, applies environment overrides and
// builds the logger. Log output goes to logOut.
func (c *commandContext) ensureConfig(logOut io.Writer) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}

		bootstrap := logging.New("config", logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: logOut,
		})
		cfg.ApplyEnv(bootstrap)

		level := cfg.Logging.Level
		if v := strings.TrimSpace(*c.logLevelFlag); v != "" {
			level = v
		}
		c.logger = logging.New("cli", logging.Options{
			Level:  level,
			Format: cfg.Logging.Format,
			Output: logOut,
		})
		intensity.SetLogger(c.logger)
		c.config = cfg
	})
	return c.config, c.configErr
}
