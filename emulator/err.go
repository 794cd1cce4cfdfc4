package emulator

import (
	"errors"

	"github.com/ezrec/lc3sim/translate"
)

var f = translate.From

var (
	ErrTickLimit = errors.New(f("tick limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Ip     uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("x%04X %v", err.Ip, err.Err)
	}
	return f("x%04X line %d %v", err.Ip, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
