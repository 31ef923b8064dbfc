package sync

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/woodpower/baselinker-sync-backend/internal/adapters/baselinker"
	"github.com/woodpower/baselinker-sync-backend/internal/domain/parser"
	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/storage"
)

const (
	initialPieceStatus = "czeka_na_wyciecie"
	syncSource         = "baselinker_auto"

	// netPriceFieldKey is the custom extra field sellers set to "netto"
	// when the order price is already net.
	netPriceFieldKey   = "106169"
	netPriceFieldValue = "netto"

	defaultDensityKGM3 = 700
)

// speciesDensity is the assumed density in kg/m³ per wood species.
var speciesDensity = map[string]float64{
	"dąb":     710,
	"jesion":  690,
	"buk":     720,
	"orzech":  650,
	"sosna":   520,
	"modrzew": 590,
}

// ClientSnapshot is the client data frozen onto each piece at sync time.
type ClientSnapshot struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// SnapshotClient extracts client contact data from an order. Name falls
// back through delivery name, invoice name, login and email.
func SnapshotClient(order *baselinker.Order) ClientSnapshot {
	name := order.DeliveryFullname
	if name == "" {
		name = order.InvoiceFullname
	}
	if name == "" {
		name = order.UserLogin
	}
	if name == "" {
		name = order.Email
	}

	addressParts := []string{}
	if order.DeliveryAddress != "" {
		addressParts = append(addressParts, order.DeliveryAddress)
	}
	if order.DeliveryPostcode != "" || order.DeliveryCity != "" {
		addressParts = append(addressParts, strings.TrimSpace(order.DeliveryPostcode+" "+order.DeliveryCity))
	}

	return ClientSnapshot{
		Name:    name,
		Email:   order.Email,
		Phone:   order.Phone,
		Address: strings.Join(addressParts, ", "),
	}
}

// Factory builds persistable production pieces from order lines.
type Factory struct {
	deadlineDays int
	logger       *slog.Logger
	now          func() time.Time
}

// NewFactory creates a factory with the configured default deadline window.
func NewFactory(deadlineDays int, logger *slog.Logger) *Factory {
	return &Factory{deadlineDays: deadlineDays, logger: logger, now: time.Now}
}

// Build creates one production piece. Missing optional attributes default to
// zero values; only logging happens, never an error.
func (f *Factory) Build(
	order *baselinker.Order,
	product *baselinker.OrderProduct,
	attrs parser.Attributes,
	internalOrderNumber, shortProductID string,
	sequenceNumber int,
	client ClientSnapshot,
) *storage.ProductionPiece {
	piece := &storage.ProductionPiece{
		ShortProductID:      shortProductID,
		InternalOrderNumber: internalOrderNumber,
		BaselinkerOrderID:   order.OrderID,
		OrderProductID:      product.OrderProductID.String(),
		SequenceNumber:      sequenceNumber,
		ProductName:         product.Name,
		Species:             attrs.Species,
		Technology:          attrs.Technology,
		WoodClass:           attrs.WoodClass,
		FinishState:         attrs.FinishState,
		Status:              initialPieceStatus,
		Deadline:            f.deadline(order),
		PaymentDate:         order.PaymentDate(),
		ClientName:          client.Name,
		ClientEmail:         client.Email,
		ClientPhone:         client.Phone,
		ClientAddress:       client.Address,
		SyncSource:          syncSource,
	}

	if attrs.LengthCM != nil {
		piece.LengthCM = *attrs.LengthCM
	}
	if attrs.WidthCM != nil {
		piece.WidthCM = *attrs.WidthCM
	}
	if attrs.ThicknessCM != nil {
		piece.ThicknessCM = *attrs.ThicknessCM
	}

	piece.VolumeM3 = f.volume(attrs)
	piece.WeightKG = weight(attrs.Species, piece.VolumeM3)
	piece.PriceNet = NetUnitPrice(order, product)

	if piece.VolumeM3 == 0 {
		f.logger.Debug("piece has no volume data",
			"short_product_id", shortProductID, "product", product.Name)
	}

	return piece
}

// deadline adds the configured number of business days to the order's base
// date, falling back to today when the order carries no usable date.
func (f *Factory) deadline(order *baselinker.Order) time.Time {
	base := order.DeadlineBase()
	if base.IsZero() {
		base = f.now()
	}
	return AddBusinessDays(base, f.deadlineDays)
}

func (f *Factory) volume(attrs parser.Attributes) float64 {
	if attrs.VolumeM3 != nil {
		return *attrs.VolumeM3
	}
	if attrs.HasDimensions() {
		return *attrs.LengthCM * *attrs.WidthCM * *attrs.ThicknessCM / 1_000_000
	}
	return 0
}

func weight(species string, volumeM3 float64) float64 {
	density, ok := speciesDensity[species]
	if !ok {
		density = defaultDensityKGM3
	}
	w := decimal.NewFromFloat(volumeM3).Mul(decimal.NewFromFloat(density))
	result, _ := w.Round(2).Float64()
	return result
}

// NetUnitPrice computes the net unit price. When the order's custom extra
// field marks the price as already net, the gross value is taken as-is;
// otherwise the net value is derived from the tax rate. Rounded to 2
// decimal places.
func NetUnitPrice(order *baselinker.Order, product *baselinker.OrderProduct) float64 {
	gross := decimal.NewFromFloat(product.PriceBrutto)

	if order.CustomExtraField[netPriceFieldKey] == netPriceFieldValue {
		result, _ := gross.Round(2).Float64()
		return result
	}

	rate := decimal.NewFromFloat(product.TaxRate)
	divisor := decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100)))
	if divisor.IsZero() {
		result, _ := gross.Round(2).Float64()
		return result
	}

	result, _ := gross.Div(divisor).Round(2).Float64()
	return result
}

// AddBusinessDays advances a date by n business days, skipping Saturdays
// and Sundays.
func AddBusinessDays(base time.Time, n int) time.Time {
	d := base
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			added++
		}
	}
	return d
}
