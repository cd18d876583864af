package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Legal-form tokens removed before comparison. The registry-side pass
// uses a slightly different list: it never carried "sasf".
var (
	crmLegalForms      = []string{"sarl", "sa", "sas", "sasu", "eurl", "ei", "sci", "scop", "snc", "sc", "sasf"}
	registryLegalForms = []string{"sarl", "sa", "sas", "sasu", "eurl", "ei", "sci", "snc", "sc", "scop"}
)

var (
	reParenthesised    = regexp.MustCompile(`\([^)]*\)`)
	reCedex            = regexp.MustCompile(`\bcedex\b`)
	rePunctuation      = regexp.MustCompile(`[^\w\s-]`)
	reMultiSpace       = regexp.MustCompile(`\s+`)
	reCrmLegalForms    = legalFormPattern(crmLegalForms)
	reRegistryLegalFrm = legalFormPattern(registryLegalForms)
)

func legalFormPattern(forms []string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(forms, "|") + `)\b`)
}

// LegalForms returns the legal-form tokens stripped by Text.
func LegalForms() []string {
	return append([]string(nil), crmLegalForms...)
}

// RegistryLegalForms returns the legal-form tokens stripped by CompanyName.
func RegistryLegalForms() []string {
	return append([]string(nil), registryLegalForms...)
}

// foldASCII lower-cases, decomposes and drops everything outside ASCII,
// which removes combining marks along with any rune without an ASCII base.
func foldASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return ""
	}
	return folded
}

// Text canonicalizes a free-text field (company name or city) for
// comparison. Missing input yields "". Both sides of every comparison go
// through Text, never one raw and one normalized value.
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := foldASCII(raw)
	s = reParenthesised.ReplaceAllString(s, " ")
	s = reCedex.ReplaceAllString(s, " ")
	s = rePunctuation.ReplaceAllString(s, " ")
	s = reCrmLegalForms.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// CompanyName is the registry-side name pass used to precompute the
// normalized establishment name. Punctuation is deleted rather than
// replaced so dotted forms like "S.A.R.L." collapse into a legal form.
func CompanyName(raw string) string {
	if raw == "" {
		return ""
	}

	s := foldASCII(raw)
	s = rePunctuation.ReplaceAllString(s, "")
	s = reRegistryLegalFrm.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Acronym concatenates the first character of every whitespace token.
func Acronym(s string) string {
	b := strings.Builder{}
	for _, word := range strings.Fields(s) {
		for _, r := range word {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}

// UID normalizes an internal identifier read from a spreadsheet, where
// numeric ids often come back as floats ("1234.0" -> "1234").
func UID(raw string) string {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "nan", "NaN", "None":
		return ""
	}

	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
