package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilearchive/internal/config"
	"github.com/MeKo-Tech/tilearchive/internal/logging"
)

var logger *slog.Logger

// initLogging builds the process logger from cfg. A nil cfg logs at info to
// the console.
func initLogging(cfg *config.Config) {
	lc := logging.Config{Level: "info", Console: true}
	if cfg != nil {
		lc = cfg.Logging()
	}
	if viper.GetBool("verbose") {
		lc.Level = "debug"
	}

	logger = logging.New(lc, os.Stderr)
	slog.SetDefault(logger)
}
