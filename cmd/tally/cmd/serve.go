package cmd

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagAddr            = "addr"
	flagShutdownTimeout = "shutdown-timeout"
	flagMetrics         = "metrics"
	flagSummaryInterval = "summary-interval"
	flagTop             = "top"
	flagKafkaBrokers    = "kafka-brokers"
	flagKafkaTopic      = "kafka-topic"
	flagAlertThreshold  = "alert-threshold"
	flagAlertSpan       = "alert-span"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the request counter",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, closer, err := configureLogger(viper.GetString(flagLogLevel), viper.GetString(flagLogSink), os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		defer closer.Close()

		runCtx, can := context.WithCancel(context.Background())
		catchCancelSignal(can, shutdownSignals...)
		defer can()

		t := NewTally(runCtx, serveConfig(), logger)
		t.Init()
		if err := t.Run(); err != nil {
			logger.WithFields(log.Fields{"err": err}).Error("server stopped")
			return err
		}
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.String(flagAddr, "127.0.0.1:8080", "address to listen on")
	f.Duration(flagShutdownTimeout, 5*time.Second, "grace period for in-flight requests on shutdown")
	f.Bool(flagMetrics, true, "serve prometheus metrics on /metrics")
	f.Duration(flagSummaryInterval, 30*time.Second, "interval between route summary log lines, 0 disables")
	f.Int(flagTop, 5, "number of routes in each summary")
	f.StringSlice(flagKafkaBrokers, nil, "kafka brokers to publish counter events to, blank disables")
	f.String(flagKafkaTopic, "tally.counter", "kafka topic for counter events")
	f.Int(flagAlertThreshold, 1000, "alert when more requests than this arrive within alert-span, 0 disables")
	f.Duration(flagAlertSpan, 2*time.Minute, "window for the request rate alert")
	bindFlags(f)
}

func serveConfig() Config {
	return Config{
		Addr:            viper.GetString(flagAddr),
		ShutdownTimeout: viper.GetDuration(flagShutdownTimeout),
		Metrics:         viper.GetBool(flagMetrics),
		SummaryInterval: viper.GetDuration(flagSummaryInterval),
		TopN:            viper.GetInt(flagTop),
		KafkaBrokers:    splitList(viper.GetStringSlice(flagKafkaBrokers)),
		KafkaTopic:      viper.GetString(flagKafkaTopic),
		AlertThreshold:  viper.GetInt(flagAlertThreshold),
		AlertSpan:       viper.GetDuration(flagAlertSpan),
	}
}
