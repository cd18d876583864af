//go:build !libpostal

package postal

// Default returns the regex parser. Build with -tags libpostal to use
// libpostal instead.
func Default() Parser {
	return RegexParser{}
}
