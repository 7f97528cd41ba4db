package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilearchive/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tilearchive",
	Short: "Download map tiles into an MBTiles archive",
	Long: `tilearchive enumerates the tiles covering a bounding box over a zoom range,
downloads them from a tile server URL template and stores them in an
MBTiles SQLite archive. Tiles already present in the archive are skipped,
so an interrupted run can simply be started again.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON instead of console output")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	config.Setup(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Failed to read config file:", err)
	}
}

// loadConfig returns the typed configuration after flags and config file
// have been merged by viper.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

type flagBinding struct {
	key  string
	flag string
}

// bindFlags binds command flags to viper keys. Commands sharing config keys
// bind in PreRunE so the running command's flags win.
func bindFlags(cmd *cobra.Command, bindings []flagBinding) error {
	for _, bf := range bindings {
		f := cmd.Flags().Lookup(bf.flag)
		if f == nil {
			return fmt.Errorf("unknown flag %s", bf.flag)
		}
		if err := viper.BindPFlag(bf.key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", bf.flag, err)
		}
	}
	return nil
}
