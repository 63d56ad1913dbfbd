package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sheetqa",
	Short: "Ask canned questions about an Excel sales sheet",
	Long: `sheetqa loads an .xlsx file the same way the web tool does, archives it
and answers questions such as "total sales" or "top products" from the first sheet.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sheetqa.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	logger = newLogger(slog.LevelInfo)
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sheetqa")
	}

	viper.SetEnvPrefix("SHEETQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Info("using config file", "file", viper.ConfigFileUsed())
	}

	switch viper.GetString("log-level") {
	case "debug":
		logger = newLogger(slog.LevelDebug)
	case "warn":
		logger = newLogger(slog.LevelWarn)
	case "error":
		logger = newLogger(slog.LevelError)
	}
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func GetLogger() *slog.Logger {
	return logger
}
