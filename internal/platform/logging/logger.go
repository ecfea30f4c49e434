package logging

import (
	"go.uber.org/zap"
)

// New returns a zap logger tuned for the given mode ("dev" gets console output).
func New(mode string) (*zap.Logger, error) {
	if mode == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
