// Package helpers holds small utilities shared by the framework packages.
package helpers

// ConfigOption is a functional option that configures a T.
type ConfigOption[T any] interface {
	Configure(*T) error
}

// ApplyOptions applies options to target in order, stopping at the first error. U may be any
// type implementing ConfigOption[T], so packages can expose their own option type name.
func ApplyOptions[T any, U ConfigOption[T]](target *T, options ...U) error {
	for _, opt := range options {
		if err := opt.Configure(target); err != nil {
			return err
		}
	}
	return nil
}
