package passes

import (
	"errors"
	"fmt"

	"firopt/internal/diag"
)

// InvariantError reports IR that an earlier compiler stage should never have
// produced. Passes raise it by panicking; Guard turns it back into an error.
type InvariantError struct {
	Code diag.Code
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg)
}

func fatalf(code diag.Code, format string, args ...any) {
	panic(&InvariantError{Code: code, Msg: fmt.Sprintf(format, args...)})
}

// Guard runs fn and converts an InvariantError panic into a returned error.
// Any other panic is re-raised.
func Guard(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if ie, ok := r.(*InvariantError); ok {
			err = ie
			return
		}
		panic(r)
	}()
	return fn()
}

// AsInvariant unwraps err to an InvariantError.
func AsInvariant(err error) (*InvariantError, bool) {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
