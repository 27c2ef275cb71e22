package logger

import (
	"go.uber.org/zap"
)

// Log defaults to a no-op logger so library packages and tests can log
// without initialization.
var Log = zap.NewNop().Sugar()

func Init(debug bool) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = Log.Sync()
}
