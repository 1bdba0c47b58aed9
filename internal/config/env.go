package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env files into the process environment. A missing file is
// not an error; variables already set win.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			Logger.Debug("No .env file, using the process environment")
			return
		}
		Logger.WithError(err).Warn("Error loading .env file, will use environment variables instead")
	}
}
