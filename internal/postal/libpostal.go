//go:build libpostal

package postal

import (
	"strings"

	gopostal "github.com/openvenues/gopostal/parser"
)

// LibpostalParser delegates to libpostal, which needs the native library
// and its data files installed.
type LibpostalParser struct{}

// Parse runs the libpostal address parser
func (LibpostalParser) Parse(address string) Components {
	var comp Components
	for _, c := range gopostal.ParseAddress(address) {
		switch c.Label {
		case "postcode":
			if comp.PostalCode == "" {
				comp.PostalCode = strings.ToUpper(strings.ReplaceAll(c.Value, " ", ""))
			}
		case "city":
			if comp.City == "" {
				comp.City = c.Value
			}
		}
	}
	return comp
}

// Default returns the libpostal parser
func Default() Parser {
	return LibpostalParser{}
}
