package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns a zap.Logger instance, but using singleton pattern creates only one reusable instance.
// Development config by default, production config when KOIBID_ENV=production.
func GetLogger() *zap.Logger {
	once.Do(func() {
		var err error
		if os.Getenv("KOIBID_ENV") == "production" {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}
