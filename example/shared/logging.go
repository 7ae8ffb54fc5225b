package shared

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &logrus.Logger{
		Out:   os.Stdout,
		Level: lvl,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
	}, nil
}
