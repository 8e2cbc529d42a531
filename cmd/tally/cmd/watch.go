package cmd

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ropes/tally/pkg/view"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagTarget   = "target"
	flagInterval = "interval"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "terminal dashboard for a running tally server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The dashboard owns the terminal, so only an explicit sink gets logs.
		logger, closer, err := configureLogger(viper.GetString(flagLogLevel), viper.GetString(flagLogSink), io.Discard)
		if err != nil {
			log.Fatal(err)
		}
		defer closer.Close()

		target := viper.GetString(flagTarget)
		interval := viper.GetDuration(flagInterval)

		runCtx, can := context.WithCancel(context.Background())
		catchCancelSignal(can, shutdownSignals...)
		defer can()

		d, err := view.Init(target)
		if err != nil {
			logger.WithFields(log.Fields{"err": err}).Error("starting dashboard")
			return err
		}
		client := &http.Client{Timeout: interval}
		logger.WithFields(log.Fields{"target": target, "interval": interval}).Info("watching")
		d.Run(runCtx, can, interval, func(ctx context.Context) (view.Snapshot, error) {
			s, err := view.Scrape(ctx, client, target)
			if err != nil {
				logger.WithFields(log.Fields{"err": err}).Warn("scrape failed")
			}
			return s, err
		})
		return nil
	},
}

func init() {
	f := watchCmd.Flags()
	f.String(flagTarget, "http://127.0.0.1:8080", "base URL of the tally server")
	f.Duration(flagInterval, time.Second, "polling interval")
	bindFlags(f)
}
