//go:build !libpostal

package external

// Available reports whether the libpostal bindings were compiled in.
func Available() bool { return false }

// ExtractWithLibpostal always fails unless built with -tags libpostal.
func ExtractWithLibpostal(string) (Result, error) {
	return Result{}, ErrLibpostalUnavailable
}
