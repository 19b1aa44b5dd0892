// Package sentinel provides an error type for sentinel errors that can be declared as constants.
package sentinel

var _ error = Error("")

// Error is an immutable error backed by a string constant. Because it is a comparable value
// type, errors.Is matches it through wrapped error chains.
type Error string

func (e Error) Error() string {
	return string(e)
}
