package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// configureLogger builds a logger at level writing to sink. An empty sink
// means fallback; "stderr" and file paths are honoured as given. The
// returned Closer releases an opened log file.
func configureLogger(level, sink string, fallback io.Writer) (*log.Logger, io.Closer, error) {
	logLevelVal, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing loglevel configuration: %w", err)
	}
	logger := log.New()
	logger.SetLevel(logLevelVal)

	switch sink {
	case "":
		logger.SetOutput(fallback)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		lf, err := os.OpenFile(sink, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open %q for logging: %w", sink, err)
		}
		logger.SetOutput(lf)
		return logger, lf, nil
	}
	return logger, nopCloser{}, nil
}
