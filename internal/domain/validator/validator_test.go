package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/parser"
)

func TestValidateCompleteOrder(t *testing.T) {
	v := New(parser.New())

	valid, errs := v.Validate([]baselinker.OrderProduct{
		{Name: "Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie bezbarwne"},
		{Name: "Klejonka bukowa mikrowczep B/B 120x80x2,5 cm surowa"},
	})

	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestValidateMissingFields(t *testing.T) {
	v := New(parser.New())

	valid, errs := v.Validate([]baselinker.OrderProduct{
		{Name: "Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie"},
		{Name: "Blat dębowy olejowanie"},
	})

	assert.False(t, valid)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Produkt 2")
	assert.Contains(t, errs[0], "Brakujące dane")
	assert.Contains(t, errs[0], "grubość")
	assert.Contains(t, errs[0], "klasa")
	assert.Contains(t, errs[0], "szerokość")
	assert.Contains(t, errs[0], "długość")
	assert.NotContains(t, errs[0], "gatunek")
}

func TestValidateAggregatesPerProduct(t *testing.T) {
	v := New(parser.New())

	valid, errs := v.Validate([]baselinker.OrderProduct{
		{Name: "Usługa transportu"},
		{Name: "Montaż"},
	})

	assert.False(t, valid)
	assert.Len(t, errs, 2)
}

func TestValidateTruncatesLongNames(t *testing.T) {
	v := New(parser.New())

	longName := "Blat dębowy lity w bardzo długiej nazwie produktu bez wymiarów"
	_, errs := v.Validate([]baselinker.OrderProduct{{Name: longName}})

	require.Len(t, errs, 1)
	assert.NotContains(t, errs[0], longName)
	assert.Contains(t, errs[0], string([]rune(longName)[:30]))
}

func TestValidateEmptyProductList(t *testing.T) {
	v := New(parser.New())

	valid, errs := v.Validate(nil)

	assert.True(t, valid)
	assert.Empty(t, errs)
}
