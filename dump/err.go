package dump

import (
	"github.com/ezrec/sfbc/translate"
)

var f = translate.From

// ErrFormat is returned for an unknown output format name.
type ErrFormat string

func (err ErrFormat) Error() string {
	return f("output format %v unknown", string(err))
}
