package safe

import (
	"StayChat/logger"
	"StayChat/tools/errs"
)

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[SafeGo] panic recovered: %v", r)
			}
		}()
		f()
	}()
}

// Recover is meant to be deferred at a dispatch boundary. The recovered
// value, if any, is written into *err so the caller sees it as a normal
// error instead of a crashed goroutine.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = errs.ErrPanic(r)
	}
}
