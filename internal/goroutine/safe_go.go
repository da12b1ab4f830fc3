package goroutine

import (
	"log"
	"runtime/debug"

	"github.com/binaryblade24/marketplace-backend/internal/logger"
)

// SafeGo запускает функцию в горутине с перехватом panic.
// Используется для пост-коммитных side effects: паника в уведомлении
// не должна ронять процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

func recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	if logger.Log != nil {
		logger.Log.WithField("panic", r).Errorf("паника в горутине\n%s", debug.Stack())
		return
	}
	log.Printf("паника в горутине: %v\n%s", r, debug.Stack())
}
