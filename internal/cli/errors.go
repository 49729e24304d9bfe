package cli

import (
	"errors"
	"fmt"
)

// ErrUsage marks failures caused by how the command was invoked rather than
// by the generation run itself; main exits 2 when it sees one.
var ErrUsage = errors.New("usage error")

type usageError struct {
	msg string
}

// newUsageError builds a usage-class error; format follows fmt rules.
func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func (e *usageError) Error() string { return e.msg }

func (e *usageError) Unwrap() error { return ErrUsage }
