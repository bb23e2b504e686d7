// Package logger wires logrus for the raid-simulator binary and its
// internal/raid engine. cmd/main.go calls logger.InitLogger on startup
// before anything else runs.
package logger

import (
	"fmt"
	"os"

	"github.com/Anthya1104/raid-simulator/internal/config"
	"github.com/sirupsen/logrus"
)

// InitLogger configures the package-level logrus logger used throughout
// the engine. It is safe to call more than once; the last call wins.
func InitLogger(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logrus.SetOutput(os.Stdout)

	return nil
}

func parseLevel(level string) (logrus.Level, error) {
	switch level {
	case config.LogLevelDebug:
		return logrus.DebugLevel, nil
	case config.LogLevelInfo:
		return logrus.InfoLevel, nil
	case config.LogLevelWarning:
		return logrus.WarnLevel, nil
	case config.LogLevelError:
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
