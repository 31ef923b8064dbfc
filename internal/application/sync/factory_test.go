package sync

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/parser"
)

func testFactory(deadlineDays int) *Factory {
	f := NewFactory(deadlineDays, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestAddBusinessDaysSkipsWeekend(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Friday, friday.Weekday())

	got := AddBusinessDays(friday, 1)

	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, 31, got.Day())
}

func TestAddBusinessDaysAcrossTwoWeekends(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	got := AddBusinessDays(monday, 10)

	// 10 business days from a Monday is the Monday two weeks later.
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), got)
}

func TestNetUnitPriceFromTaxRate(t *testing.T) {
	order := &baselinker.Order{}
	product := &baselinker.OrderProduct{PriceBrutto: 123.00, TaxRate: 23}

	assert.InDelta(t, 100.00, NetUnitPrice(order, product), 0.001)
}

func TestNetUnitPriceNettoOverride(t *testing.T) {
	order := &baselinker.Order{
		CustomExtraField: map[string]string{"106169": "netto"},
	}
	product := &baselinker.OrderProduct{PriceBrutto: 123.00, TaxRate: 23}

	assert.InDelta(t, 123.00, NetUnitPrice(order, product), 0.001)
}

func TestNetUnitPriceZeroTaxRate(t *testing.T) {
	order := &baselinker.Order{}
	product := &baselinker.OrderProduct{PriceBrutto: 50.00, TaxRate: 0}

	assert.InDelta(t, 50.00, NetUnitPrice(order, product), 0.001)
}

func TestSnapshotClientFallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		order baselinker.Order
		want  string
	}{
		{
			name:  "delivery name wins",
			order: baselinker.Order{DeliveryFullname: "Jan Kowalski", InvoiceFullname: "Firma Sp. z o.o.", UserLogin: "jk", Email: "jan@example.com"},
			want:  "Jan Kowalski",
		},
		{
			name:  "invoice name second",
			order: baselinker.Order{InvoiceFullname: "Firma Sp. z o.o.", UserLogin: "jk", Email: "jan@example.com"},
			want:  "Firma Sp. z o.o.",
		},
		{
			name:  "login third",
			order: baselinker.Order{UserLogin: "jk", Email: "jan@example.com"},
			want:  "jk",
		},
		{
			name:  "email last",
			order: baselinker.Order{Email: "jan@example.com"},
			want:  "jan@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotClient(&tt.order).Name)
		})
	}
}

func TestSnapshotClientAddress(t *testing.T) {
	order := baselinker.Order{
		DeliveryAddress:  "ul. Stolarska 5",
		DeliveryPostcode: "30-001",
		DeliveryCity:     "Kraków",
	}

	assert.Equal(t, "ul. Stolarska 5, 30-001 Kraków", SnapshotClient(&order).Address)
}

func TestBuildComputesDerivedFields(t *testing.T) {
	f := testFactory(14)
	p := parser.New()

	order := &baselinker.Order{
		OrderID:          1001,
		DateInStatus:     time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC).Unix(),
		DeliveryFullname: "Jan Kowalski",
		Email:            "jan@example.com",
	}
	product := &baselinker.OrderProduct{
		OrderProductID: "77",
		Name:           "Blat dębowy lity A/B 200 x 60 x 4 cm olejowanie bezbarwne",
		PriceBrutto:    1230.00,
		TaxRate:        23,
	}
	attrs := p.Parse(product.Name)

	piece := f.Build(order, product, attrs, "26_00001", "26_00001_1", 1, SnapshotClient(order))

	assert.Equal(t, "26_00001_1", piece.ShortProductID)
	assert.Equal(t, "czeka_na_wyciecie", piece.Status)
	assert.Equal(t, "baselinker_auto", piece.SyncSource)
	assert.Equal(t, "dąb", piece.Species)
	assert.Equal(t, "Olejowanie bezbarwne", piece.FinishState)
	assert.InDelta(t, 1000.00, piece.PriceNet, 0.001)
	// 200cm x 60cm x 4cm = 0.048 m³
	assert.InDelta(t, 0.048, piece.VolumeM3, 0.0001)
	// oak density 710 kg/m³
	assert.InDelta(t, 34.08, piece.WeightKG, 0.01)
	// 14 business days from Friday 2026-08-28
	assert.Equal(t, time.Date(2026, 9, 17, 9, 0, 0, 0, time.UTC), piece.Deadline)
}

func TestBuildMissingDimensionsDefaultsToZero(t *testing.T) {
	f := testFactory(14)

	order := &baselinker.Order{OrderID: 1002}
	product := &baselinker.OrderProduct{Name: "Blat dębowy olejowanie"}
	attrs := parser.New().Parse(product.Name)

	piece := f.Build(order, product, attrs, "26_00002", "26_00002_1", 1, ClientSnapshot{})

	assert.Zero(t, piece.LengthCM)
	assert.Zero(t, piece.VolumeM3)
	assert.Zero(t, piece.WeightKG)
	// No order dates at all: deadline counted from today.
	assert.Equal(t, time.Date(2026, 9, 17, 10, 0, 0, 0, time.UTC), piece.Deadline)
}
