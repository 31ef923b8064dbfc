package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullName(t *testing.T) {
	p := New()

	attrs := p.Parse("Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie bezbarwne")

	assert.Equal(t, "blat", attrs.ProductType)
	assert.Equal(t, "dąb", attrs.Species)
	assert.Equal(t, "lity", attrs.Technology)
	assert.Equal(t, "A/B", attrs.WoodClass)
	require.True(t, attrs.HasDimensions())
	assert.InDelta(t, 200, *attrs.LengthCM, 0.001)
	assert.InDelta(t, 60, *attrs.WidthCM, 0.001)
	assert.InDelta(t, 4, *attrs.ThicknessCM, 0.001)
	assert.Equal(t, "Olejowanie bezbarwne", attrs.FinishState)
}

func TestParseTable(t *testing.T) {
	p := New()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, a Attributes)
	}{
		{
			name:  "mikrowczep wins over lity",
			input: "Blat bukowy mikrowczep lity B/B 150x80x3,8 cm surowy",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "mikrowczep", a.Technology)
				assert.Equal(t, "Surowe", a.FinishState)
				assert.InDelta(t, 3.8, *a.ThicknessCM, 0.001)
			},
		},
		{
			name:  "comma decimals in dimensions",
			input: "Klejonka jesionowa A/A 120,5 x 62,5 x 2,5 cm",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "klejonka", a.ProductType)
				assert.Equal(t, "jesion", a.Species)
				assert.InDelta(t, 120.5, *a.LengthCM, 0.001)
				assert.InDelta(t, 62.5, *a.WidthCM, 0.001)
				assert.Empty(t, a.FinishState)
			},
		},
		{
			name:  "staining with descriptor",
			input: "Blat orzechowy lity Rustic 90x45x4 cm bejcowanie orzech ciemny",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "orzech", a.Species)
				assert.Equal(t, "Rustic", a.WoodClass)
				assert.Equal(t, "Bejcowanie orzech ciemny", a.FinishState)
			},
		},
		{
			name:  "varnish bare keyword",
			input: "Parapet sosnowy A/B 100 x 30 x 3 cm lakierowanie",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "parapet", a.ProductType)
				assert.Equal(t, "sosna", a.Species)
				assert.Equal(t, "Lakierowanie", a.FinishState)
			},
		},
		{
			name:  "volume token",
			input: "Tarcica dębowa 2,5 m3",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "tarcica", a.ProductType)
				require.NotNil(t, a.VolumeM3)
				assert.InDelta(t, 2.5, *a.VolumeM3, 0.001)
				assert.False(t, a.HasDimensions())
			},
		},
		{
			name:  "no recognizable attributes",
			input: "Usługa transportu",
			check: func(t *testing.T, a Attributes) {
				assert.Empty(t, a.ProductType)
				assert.Empty(t, a.Species)
				assert.Empty(t, a.WoodClass)
				assert.Empty(t, a.FinishState)
				assert.False(t, a.HasDimensions())
				assert.Nil(t, a.VolumeM3)
			},
		},
		{
			name:  "missing dimensions leave fields nil",
			input: "Blat dębowy lity A/B olejowanie",
			check: func(t *testing.T, a Attributes) {
				assert.Equal(t, "dąb", a.Species)
				assert.False(t, a.HasDimensions())
				assert.Nil(t, a.LengthCM)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, p.Parse(tt.input))
		})
	}
}

func TestProductTypeClassification(t *testing.T) {
	p := New()

	tests := []struct {
		input string
		want  string
	}{
		{"Suszenie komorowe drewna", "suszenie"},
		{"Worek opałowy 20kg", "worek opałowy"},
		{"Deska tarasowa modrzewiowa", "deska"},
		{"Blat dębowy lity", "blat"},
		{"Coś zupełnie innego", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ProductType(tt.input), tt.input)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := New()
	name := "Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie bezbarwne"

	first := p.Parse(name)
	second := p.Parse(name)

	assert.Equal(t, first.FinishState, second.FinishState)
	assert.Equal(t, *first.LengthCM, *second.LengthCM)
	assert.Equal(t, first.WoodClass, second.WoodClass)
}
