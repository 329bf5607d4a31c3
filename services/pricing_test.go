package services

import (
	"testing"
	"time"

	"backend/models"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.125, 0.13},
		{-0.125, -0.13},
		{0.375, 0.38},
		{132.499, 132.5},
		{0, 0},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestServiceLineTotalSurchargesOncePerLine(t *testing.T) {
	li := models.ServiceLineItem{
		Quantity:         2,
		UnitPrice:        500,
		WeekendSurcharge: 50,
		NightSurcharge:   20,
	}
	// Surcharges apply once per line, not per unit.
	if got := ServiceLineTotal(li); got != 1070 {
		t.Errorf("ServiceLineTotal = %v, want 1070", got)
	}
}

func TestRentalDays(t *testing.T) {
	start := time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same instant", start, 1},
		{"partial day counts full", start.Add(5 * time.Hour), 1},
		{"just over one day", start.Add(25 * time.Hour), 2},
		{"exactly three days", start.Add(72 * time.Hour), 3},
		{"ten days", start.Add(240 * time.Hour), 10},
	}
	for _, c := range cases {
		got := RentalDays(models.RentalWindow{Start: start, End: c.end})
		if got != c.want {
			t.Errorf("%s: RentalDays = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestEquipmentLineTotalWeeklySplit(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// 10 days with a weekly rate: 1 week + 3 days.
	li := models.EquipmentLineItem{
		Quantity:     1,
		DailyPrice:   40,
		WeeklyPrice:  200,
		RentalWindow: models.RentalWindow{Start: start, End: start.Add(240 * time.Hour)},
	}
	if got := EquipmentLineTotal(li); got != 320 {
		t.Errorf("10-day rental = %v, want 320 (200 + 3*40)", got)
	}

	// Same window without a weekly rate falls back to daily pricing.
	li.WeeklyPrice = 0
	if got := EquipmentLineTotal(li); got != 400 {
		t.Errorf("10-day daily-only rental = %v, want 400", got)
	}

	// Short rental never uses the weekly rate.
	li.WeeklyPrice = 200
	li.RentalWindow.End = start.Add(48 * time.Hour)
	if got := EquipmentLineTotal(li); got != 80 {
		t.Errorf("2-day rental = %v, want 80", got)
	}
}

func TestEquipmentLineTotalFeesOncePerLine(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	li := models.EquipmentLineItem{
		Quantity:     3,
		DailyPrice:   25,
		RentalWindow: models.RentalWindow{Start: start, End: start.Add(24 * time.Hour)},
		Delivery:     true,
		DeliveryFee:  30,
		Install:      true,
		InstallFee:   45,
	}
	// 1 day * 25 * 3 + 30 + 45; fees are not multiplied by quantity.
	if got := EquipmentLineTotal(li); got != 150 {
		t.Errorf("EquipmentLineTotal = %v, want 150", got)
	}
}

// Regression for the documented reference case: services 1000, equipment 300,
// travel 25, 10% discount, 20% VAT, 30% deposit.
func TestComputeBreakdownReferenceCase(t *testing.T) {
	start := time.Date(2026, 6, 13, 8, 0, 0, 0, time.UTC)
	services := []models.ServiceLineItem{
		{Name: "DJ", Quantity: 2, UnitPrice: 500},
	}
	equipment := []models.EquipmentLineItem{
		{
			Name:         "Sono",
			Quantity:     1,
			DailyPrice:   150,
			RentalWindow: models.RentalWindow{Start: start, End: start.Add(48 * time.Hour)},
		},
	}
	travel := &models.TravelFee{BillableKm: 50, Fee: 25}
	discount := models.Discount{Kind: models.DiscountPercentage, Value: 10}

	b, err := ComputeBreakdown(services, equipment, travel, nil, discount, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"services subtotal", b.ServicesSubtotal, 1000},
		{"equipment subtotal", b.EquipmentSubtotal, 300},
		{"pre-discount total", b.PreDiscountTotal, 1325},
		{"discount amount", b.DiscountAmount, 132.50},
		{"post-discount total", b.PostDiscountTotal, 1192.50},
		{"VAT amount", b.VATAmount, 238.50},
		{"total with tax", b.TotalWithTax, 1431.00},
		{"deposit amount", b.Deposit.Amount, 429.30},
		{"remaining balance", b.RemainingBalance, 1001.70},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestComputeBreakdownConsistencyIdentities(t *testing.T) {
	services := []models.ServiceLineItem{
		{Quantity: 3, UnitPrice: 123.45, NightSurcharge: 17.5},
		{Quantity: 1, UnitPrice: 89.99},
	}
	extras := []models.ExtraFee{{Label: "Frais de dossier", Amount: 45}}
	discount := models.Discount{Kind: models.DiscountFixed, Value: 33.33}

	b, err := ComputeBreakdown(services, nil, nil, extras, discount, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}

	if got := Round2(b.PreDiscountTotal - b.DiscountAmount); got != b.PostDiscountTotal {
		t.Errorf("post-discount identity broken: %v != %v", got, b.PostDiscountTotal)
	}
	if got := Round2(b.PostDiscountTotal + b.VATAmount); got != b.TotalWithTax {
		t.Errorf("total identity broken: %v != %v", got, b.TotalWithTax)
	}
	if got := Round2(b.Deposit.Amount + b.RemainingBalance); got != b.TotalWithTax {
		t.Errorf("deposit split identity broken: %v != %v", got, b.TotalWithTax)
	}
}

func TestComputeBreakdownDeterministic(t *testing.T) {
	services := []models.ServiceLineItem{{Quantity: 2, UnitPrice: 500}}
	first, err := ComputeBreakdown(services, nil, nil, nil, models.Discount{}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	second, err := ComputeBreakdown(services, nil, nil, nil, models.Discount{}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	if first.TotalWithTax != second.TotalWithTax || first.DiscountAmount != second.DiscountAmount {
		t.Error("identical inputs produced different breakdowns")
	}
}

func TestComputeBreakdownDiscountClamp(t *testing.T) {
	services := []models.ServiceLineItem{{Quantity: 1, UnitPrice: 100}}

	// A fixed discount larger than the total clamps to the total.
	b, err := ComputeBreakdown(services, nil, nil, nil,
		models.Discount{Kind: models.DiscountFixed, Value: 500}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	if b.DiscountAmount != 100 || b.PostDiscountTotal != 0 || b.TotalWithTax != 0 {
		t.Errorf("over-discount not clamped: discount=%v post=%v ttc=%v",
			b.DiscountAmount, b.PostDiscountTotal, b.TotalWithTax)
	}

	// A negative discount value never increases the total.
	b, err = ComputeBreakdown(services, nil, nil, nil,
		models.Discount{Kind: models.DiscountFixed, Value: -50}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	if b.DiscountAmount != 0 {
		t.Errorf("negative discount applied: %v", b.DiscountAmount)
	}
}

func TestComputeBreakdownRejectsBadQuantities(t *testing.T) {
	services := []models.ServiceLineItem{{Quantity: 0, UnitPrice: 100}}
	_, err := ComputeBreakdown(services, nil, nil, nil, models.Discount{}, 20, 30)
	if err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0] != "services[0].quantity" {
		t.Errorf("unexpected fields: %v", ve.Fields)
	}
}

func TestComputeBreakdownDegradedTravelContributesZero(t *testing.T) {
	services := []models.ServiceLineItem{{Quantity: 1, UnitPrice: 100}}
	travel := &models.TravelFee{Error: "destination address: address could not be resolved"}

	b, err := ComputeBreakdown(services, nil, travel, nil, models.Discount{}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	if b.PreDiscountTotal != 100 {
		t.Errorf("degraded travel fee changed the total: %v", b.PreDiscountTotal)
	}
	if b.TravelFee.Error == "" {
		t.Error("degraded flag lost in breakdown")
	}
}

func TestTotalWithTaxMonotonicInQuantity(t *testing.T) {
	// Raising any single line's quantity never lowers the grand total, even
	// with a percentage discount and awkward unit prices in play.
	discount := models.Discount{Kind: models.DiscountPercentage, Value: 10}
	prev := 0.0
	for qty := 1; qty <= 50; qty++ {
		services := []models.ServiceLineItem{
			{Quantity: qty, UnitPrice: 333.33},
			{Quantity: 2, UnitPrice: 47.99},
		}
		b, err := ComputeBreakdown(services, nil, nil, nil, discount, 20, 30)
		if err != nil {
			t.Fatalf("quantity %d: %v", qty, err)
		}
		if b.TotalWithTax < prev {
			t.Fatalf("quantity %d lowered the total: %v < %v", qty, b.TotalWithTax, prev)
		}
		prev = b.TotalWithTax
	}
}

func TestComputeBreakdownWritesLineTotals(t *testing.T) {
	services := []models.ServiceLineItem{{Quantity: 2, UnitPrice: 500}}
	equipment := []models.EquipmentLineItem{{Quantity: 1, DailyPrice: 150}}

	if _, err := ComputeBreakdown(services, equipment, nil, nil, models.Discount{}, 20, 30); err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	// The stored aggregate and the PDF read per-line totals from the slices.
	if services[0].ComputedTotal != 1000 {
		t.Errorf("service ComputedTotal = %v, want 1000", services[0].ComputedTotal)
	}
	if equipment[0].ComputedTotal != 150 {
		t.Errorf("equipment ComputedTotal = %v, want 150", equipment[0].ComputedTotal)
	}
}

func TestCarriedPricingInputs(t *testing.T) {
	settings := &models.PricingSettings{DefaultVATRate: 20, DefaultDepositPct: 30}

	// No previous breakdown: settings defaults.
	d, fees, vat, dep := CarriedPricingInputs(nil, settings)
	if d.Kind != "" || len(fees) != 0 || vat != 20 || dep != 30 {
		t.Errorf("defaults = %+v %v %v %v", d, fees, vat, dep)
	}

	// A breakdown seeded by a staff discount holds zero rates; the carry-over
	// must fall back to the settings instead of pricing with no VAT.
	seeded := &models.Breakdown{
		Discount:  models.Discount{Kind: models.DiscountPercentage, Value: 10},
		ExtraFees: []models.ExtraFee{{Label: "Permis son", Amount: 50}},
	}
	d, fees, vat, dep = CarriedPricingInputs(seeded, settings)
	if d.Value != 10 || len(fees) != 1 {
		t.Errorf("discount/fees not carried: %+v %v", d, fees)
	}
	if vat != 20 || dep != 30 {
		t.Errorf("zero rates carried over defaults: vat=%v deposit=%v", vat, dep)
	}

	// A priced breakdown keeps its own rates.
	priced := &models.Breakdown{VATRate: 10, Deposit: models.Deposit{Percentage: 50}}
	_, _, vat, dep = CarriedPricingInputs(priced, settings)
	if vat != 10 || dep != 50 {
		t.Errorf("computed rates lost: vat=%v deposit=%v", vat, dep)
	}
}
