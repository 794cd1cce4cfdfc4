package io

import (
	"errors"

	"github.com/ezrec/lc3sim/translate"
)

var f = translate.From

var (
	// Image errors
	ErrImagePartial = errors.New(f("image ends with a partial word"))
	ErrImageSize    = errors.New(f("image larger than memory"))
)
