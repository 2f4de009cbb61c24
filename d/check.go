// Package d provides fatal-assertion helpers for conditions that indicate a
// programmer error rather than malformed input.
package d

import (
	"fmt"

	"github.com/stretchr/testify/assert"
)

var (
	// Chk panics unconditionally on assertion failure.
	Chk = assert.New(&panicker{})
	// Exp provides the same API as Chk, but the resulting panics can be caught by Try().
	Exp = assert.New(&recoverablePanicker{})
)

type panicker struct{}

func (s panicker) Errorf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

type recoverablePanicker struct{}

func (s recoverablePanicker) Errorf(format string, args ...interface{}) {
	panic(coalError{fmt.Sprintf(format, args...)})
}

type coalError struct {
	msg string
}

func (e coalError) Error() string {
	return e.msg
}

// Try runs fn and converts a panic raised through Exp back into an error.
// Panics not raised through Exp propagate.
func Try(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(coalError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// PanicIfFalse panics if b is false. Used at invariant checks where failure
// means the caller broke a precondition, not that input was malformed.
func PanicIfFalse(b bool, format string, args ...interface{}) {
	if !b {
		panic(fmt.Sprintf(format, args...))
	}
}

// PanicIfTrue panics if b is true.
func PanicIfTrue(b bool, format string, args ...interface{}) {
	if b {
		panic(fmt.Sprintf(format, args...))
	}
}
