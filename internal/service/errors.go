// Package service implements the checkout orchestration, payment
// reconciliation and exhibitor registration flows on top of the store
// and gateway ports.
package service

import (
	"errors"
	"fmt"
)

// ErrValidation marks user-fixable input problems.  Handlers translate
// it to HTTP 400.  Wrap with invalidf so the message survives while
// errors.Is still matches.
var ErrValidation = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
