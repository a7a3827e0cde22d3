package dump

import (
	"strings"
)

// Format is a rendering format.
type Format int

const (
	FORMAT_TEXT Format = iota
	FORMAT_JSON
	FORMAT_CBOR
)

var formatNames = map[Format]string{
	FORMAT_TEXT: "text",
	FORMAT_JSON: "json",
	FORMAT_CBOR: "cbor",
}

// ParseFormat returns the format for a name, without regard to case.
func ParseFormat(name string) (format Format, err error) {
	lower := strings.ToLower(name)
	for known, fname := range formatNames {
		if fname == lower {
			format = known
			return
		}
	}

	err = ErrFormat(name)
	return
}

func (format Format) String() string {
	name, ok := formatNames[format]
	if !ok {
		return "unknown"
	}
	return name
}

// MarshalText implements encoding.TextMarshaler.
func (format Format) MarshalText() ([]byte, error) {
	_, ok := formatNames[format]
	if !ok {
		return nil, ErrFormat(format.String())
	}
	return []byte(format.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (format *Format) UnmarshalText(text []byte) (err error) {
	*format, err = ParseFormat(string(text))
	return
}
