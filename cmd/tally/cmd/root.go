package cmd

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	flagConfig   = "config"
	flagLogLevel = "loglevel"
	flagLogSink  = "logsink"
)

var rootCmd = &cobra.Command{
	Use:          "tally",
	Short:        "http request counter service",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String(flagConfig, "", "config file, any format viper reads")
	pf.String(flagLogLevel, "info", "verbosity of logging")
	pf.String(flagLogSink, "", "logging destination: blank for stdout, stderr, or a file path")
	bindFlags(pf)

	viper.SetEnvPrefix("tally")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, watchCmd)
}

func initConfig() {
	cfgFile := viper.GetString(flagConfig)
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("error reading config %q: %v", cfgFile, err)
	}
}

// bindFlags makes every flag in fs readable through viper under its own
// name, with TALLY_ env vars and the config file layered beneath.
func bindFlags(fs *pflag.FlagSet) {
	if err := viper.BindPFlags(fs); err != nil {
		log.Fatal(err)
	}
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}
