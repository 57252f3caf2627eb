package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
)

// Guard выполняет fn в текущей горутине и гасит panic, записывая её в лог.
// Возвращает true, если fn завершилась без panic.
func Guard(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Entry().WithFields(logrus.Fields{
				"task":  name,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("panic in background task")
			ok = false
		}
	}()
	fn()
	return true
}

// SafeGo запускает горутину с обработкой panic.
func SafeGo(name string, fn func()) {
	go Guard(name, fn)
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go Guard(name, func() { fn(ctx) })
}
