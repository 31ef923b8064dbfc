// Package validator gates orders before production pieces are created.
package validator

import (
	"fmt"
	"strings"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/parser"
)

// Validator checks that every product line of an order carries the data
// production needs. Errors are human-readable Polish messages shown to the
// office staff in the order's remote comment field.
type Validator struct {
	parser *parser.Parser
}

// New creates a Validator sharing the given parser.
func New(p *parser.Parser) *Validator {
	return &Validator{parser: p}
}

// Validate parses every product name and requires species, finish state,
// thickness, class, width and length. It returns whether the order may be
// synced and the per-product error messages when it may not.
func (v *Validator) Validate(products []baselinker.OrderProduct) (bool, []string) {
	var errs []string

	for i, product := range products {
		attrs := v.parser.Parse(product.Name)

		var missing []string
		if attrs.Species == "" {
			missing = append(missing, "gatunek drewna")
		}
		if attrs.FinishState == "" {
			missing = append(missing, "wykończenie")
		}
		if attrs.ThicknessCM == nil {
			missing = append(missing, "grubość")
		}
		if attrs.WoodClass == "" {
			missing = append(missing, "klasa")
		}
		if attrs.WidthCM == nil {
			missing = append(missing, "szerokość")
		}
		if attrs.LengthCM == nil {
			missing = append(missing, "długość")
		}

		if len(missing) > 0 {
			errs = append(errs, fmt.Sprintf(
				"Produkt %d %q: Brakujące dane - %s",
				i+1, truncateName(product.Name, 30), strings.Join(missing, ", "),
			))
		}
	}

	return len(errs) == 0, errs
}

func truncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit])
}
