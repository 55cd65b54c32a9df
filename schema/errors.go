package schema

import (
	"errors"
	"fmt"
	"go.uber.org/multierr"
	"strings"
)

// Invalid is single validation failure at given key path
type Invalid struct {
	Path    []string
	Message string
}

func (e *Invalid) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.PathString(), e.Message)
}

// PathString is dotted key path, empty at document root
func (e *Invalid) PathString() string {
	return strings.Join(e.Path, ".")
}

func Errorf(format string, args ...any) error {
	return &Invalid{Message: fmt.Sprintf(format, args...)}
}

// Prefix prepends path elements to every failure in err. Plain errors are converted to *Invalid.
func Prefix(err error, path ...string) error {
	if err == nil {
		return nil
	}
	var out error
	for _, e := range multierr.Errors(err) {
		var inv *Invalid
		if errors.As(e, &inv) {
			p := append(append([]string{}, path...), inv.Path...)
			out = multierr.Append(out, &Invalid{Path: p, Message: inv.Message})
		} else {
			out = multierr.Append(out, &Invalid{Path: append([]string{}, path...), Message: e.Error()})
		}
	}
	return out
}

// Failures flattens err into list of validation failures
func Failures(err error) []*Invalid {
	var out []*Invalid
	for _, e := range multierr.Errors(err) {
		var inv *Invalid
		if errors.As(e, &inv) {
			out = append(out, inv)
		} else {
			out = append(out, &Invalid{Message: e.Error()})
		}
	}
	return out
}
