// Package parser extracts structured production attributes from free-text
// product names.
//
// The catalog naming convention is fixed: a product-type token, a
// species/technology/class group, dimension tokens in centimeters and an
// optional finish descriptor, e.g.
//
//	"Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie bezbarwne"
//
// Parsing is pure: it never touches the database or the network, and a
// segment that does not match any rule leaves the field unset instead of
// failing.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Attributes is the result of parsing one product name. String fields are
// empty when absent; numeric fields are nil when absent.
type Attributes struct {
	ProductType string
	Species     string
	Technology  string
	WoodClass   string
	LengthCM    *float64
	WidthCM     *float64
	ThicknessCM *float64
	FinishState string
	VolumeM3    *float64
}

// HasDimensions reports whether all three dimensions were parsed.
func (a Attributes) HasDimensions() bool {
	return a.LengthCM != nil && a.WidthCM != nil && a.ThicknessCM != nil
}

// rule is one (substring pattern, category) pair. Rules are evaluated in
// order and the first match wins.
type rule struct {
	pattern  string
	category string
}

var productTypeRules = []rule{
	{"suszenie", "suszenie"},
	{"worek opałowy", "worek opałowy"},
	{"worek opalowy", "worek opałowy"},
	{"tarcica", "tarcica"},
	{"deska", "deska"},
	{"blat", "blat"},
	{"klejonka", "klejonka"},
	{"parapet", "parapet"},
	{"stopień", "stopień"},
	{"stopien", "stopień"},
}

var speciesRules = []rule{
	{"dębow", "dąb"},
	{"debow", "dąb"},
	{"dąb", "dąb"},
	{"dab ", "dąb"},
	{"jesionow", "jesion"},
	{"jesion", "jesion"},
	{"bukow", "buk"},
	{"buk", "buk"},
	{"orzechow", "orzech"},
	{"orzech", "orzech"},
	{"sosnow", "sosna"},
	{"sosna", "sosna"},
	{"modrzew", "modrzew"},
}

// mikrowczep must be checked before lity: some names carry both words and
// the glue technology is the one that matters.
var technologyRules = []rule{
	{"mikrowczep", "mikrowczep"},
	{"lity", "lity"},
	{"lita", "lity"},
}

var finishRules = []rule{
	{"olejow", "Olejowanie"},
	{"olej", "Olejowanie"},
	{"bejcow", "Bejcowanie"},
	{"bejc", "Bejcowanie"},
	{"lakierow", "Lakierowanie"},
	{"lakier", "Lakierowanie"},
	{"surow", "Surowe"},
}

var (
	classRe      = regexp.MustCompile(`(?i)\b(A/A|A/B|B/B|B/C|Rusti[ck])\b`)
	dimensionsRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[xX×]\s*(\d+(?:[.,]\d+)?)\s*[xX×]\s*(\d+(?:[.,]\d+)?)`)
	volumeRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*m\s*(?:3|³)`)
	// finish descriptor: the word(s) following the finish keyword, e.g.
	// "olejowanie bezbarwne" or "bejcowanie orzech ciemny".
	finishDescriptorRe = regexp.MustCompile(`(?i)(olejowanie|bejcowanie|lakierowanie)\s+([\p{L}\- ]+?)(?:\s*\d|\s*$|,)`)
)

// Parser parses catalog product names into Attributes.
type Parser struct{}

// New creates a Parser.
func New() *Parser { return &Parser{} }

// Parse extracts attributes from a product name. Absent segments leave the
// corresponding field unset.
func (p *Parser) Parse(name string) Attributes {
	attrs := Attributes{}
	lower := strings.ToLower(name)

	attrs.ProductType = matchFirst(lower, productTypeRules)
	attrs.Species = matchFirst(lower, speciesRules)
	attrs.Technology = matchFirst(lower, technologyRules)

	if m := classRe.FindString(name); m != "" {
		attrs.WoodClass = normalizeClass(m)
	}

	if m := dimensionsRe.FindStringSubmatch(name); m != nil {
		attrs.LengthCM = parseDecimal(m[1])
		attrs.WidthCM = parseDecimal(m[2])
		attrs.ThicknessCM = parseDecimal(m[3])
	}

	if m := volumeRe.FindStringSubmatch(lower); m != nil {
		attrs.VolumeM3 = parseDecimal(m[1])
	}

	attrs.FinishState = parseFinish(name, lower)

	return attrs
}

// ProductType classifies a name into a product-type category without a full
// parse. Empty when no category matches.
func (p *Parser) ProductType(name string) string {
	return matchFirst(strings.ToLower(name), productTypeRules)
}

func matchFirst(lower string, rules []rule) string {
	for _, r := range rules {
		if strings.Contains(lower, r.pattern) {
			return r.category
		}
	}
	return ""
}

func normalizeClass(raw string) string {
	upper := strings.ToUpper(raw)
	if strings.HasPrefix(upper, "RUSTI") {
		return "Rustic"
	}
	return upper
}

func parseDecimal(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseFinish returns the finish state with its descriptor when one follows
// the keyword ("Olejowanie bezbarwne"), or the bare category otherwise.
func parseFinish(name, lower string) string {
	category := matchFirst(lower, finishRules)
	if category == "" {
		return ""
	}
	if category == "Surowe" {
		return category
	}

	if m := finishDescriptorRe.FindStringSubmatch(name); m != nil {
		descriptor := strings.TrimSpace(m[2])
		if descriptor != "" && !strings.EqualFold(descriptor, "cm") {
			return category + " " + descriptor
		}
	}
	return category
}
