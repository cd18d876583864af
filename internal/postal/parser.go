// Package postal extracts the postal code and city of a free-text address
// for CRM records whose postal-code field is empty.
package postal

import (
	"regexp"
	"strings"
)

// Components holds the address parts the reconciler uses
type Components struct {
	PostalCode string
	City       string
}

// Parser extracts components from a raw address
type Parser interface {
	Parse(address string) Components
}

// French postal codes, including the Corsican 2A/2B forms
var rePostalCode = regexp.MustCompile(`\b(\d{5}|2[ABab]\d{3})\b`)

// RegexParser recognises "<street>, <postal code> <city>" style addresses
type RegexParser struct{}

// Parse returns the first postal code found and the words that follow it
// up to the next comma.
func (RegexParser) Parse(address string) Components {
	loc := rePostalCode.FindStringSubmatchIndex(address)
	if loc == nil {
		return Components{}
	}

	comp := Components{PostalCode: strings.ToUpper(address[loc[2]:loc[3]])}
	rest := address[loc[1]:]
	if i := strings.IndexAny(rest, ",;\n"); i >= 0 {
		rest = rest[:i]
	}
	comp.City = strings.Join(strings.Fields(strings.Trim(rest, " -")), " ")
	return comp
}
