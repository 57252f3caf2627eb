package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер. В production пишем JSON, а
// в development читаемый текст.
func Init(level string, env string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "development" {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Discard инициализирует логгер без вывода, удобно в тестах.
func Discard() {
	Log = logrus.New()
	Log.SetOutput(io.Discard)
}

// Entry возвращает запись логгера даже если Init ещё не вызывался.
func Entry() *logrus.Entry {
	if Log == nil {
		Discard()
	}
	return logrus.NewEntry(Log)
}
