package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// InitLogger sets the level and format of Logger. Unknown levels fall back
// to info; format is "text" or "json".
func InitLogger(level, format string) {
	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}
