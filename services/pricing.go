package services

import (
	"fmt"
	"math"
	"time"

	"backend/models"
)

// The pricing engine is the single place totals are computed. The recap view
// and the PDF both read the stored Breakdown; neither recomputes.

// Round2 rounds to 2 decimals, half away from zero. Applied once at each
// computation step; stored values are never re-rounded downstream.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round1 rounds kilometres to one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ServiceLineTotal prices one service line: unit price times quantity, plus
// the weekend/night surcharges when set (added once per line).
func ServiceLineTotal(li models.ServiceLineItem) float64 {
	total := li.UnitPrice*float64(li.Quantity) + li.WeekendSurcharge + li.NightSurcharge
	return Round2(total)
}

// RentalDays counts billable days for a rental window, minimum one day.
// Partial days count as full days.
func RentalDays(w models.RentalWindow) int {
	if !w.End.After(w.Start) {
		return 1
	}
	days := int(math.Ceil(w.End.Sub(w.Start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// EquipmentLineTotal prices one rental line. Rentals spanning 7 days or more
// are priced per started week plus remaining days at the daily rate, when a
// weekly rate exists. Delivery and install fees are added once per line.
func EquipmentLineTotal(li models.EquipmentLineItem) float64 {
	days := RentalDays(li.RentalWindow)
	var rental float64
	if days >= 7 && li.WeeklyPrice > 0 {
		weeks := days / 7
		rest := days % 7
		rental = float64(weeks)*li.WeeklyPrice + float64(rest)*li.DailyPrice
	} else {
		rental = float64(days) * li.DailyPrice
	}
	total := rental * float64(li.Quantity)
	if li.Delivery {
		total += li.DeliveryFee
	}
	if li.Install {
		total += li.InstallFee
	}
	return Round2(total)
}

// ValidateLineItems rejects malformed line items before any computation.
func ValidateLineItems(services []models.ServiceLineItem, equipment []models.EquipmentLineItem) error {
	var fields []string
	for i, s := range services {
		if s.Quantity < 1 {
			fields = append(fields, fmt.Sprintf("services[%d].quantity", i))
		}
		if s.UnitPrice < 0 {
			fields = append(fields, fmt.Sprintf("services[%d].unit_price", i))
		}
	}
	for i, e := range equipment {
		if e.Quantity < 1 {
			fields = append(fields, fmt.Sprintf("equipment[%d].quantity", i))
		}
		if e.DailyPrice < 0 || e.WeeklyPrice < 0 {
			fields = append(fields, fmt.Sprintf("equipment[%d].price", i))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CarriedPricingInputs extracts the recompute inputs that survive from a
// previous breakdown, falling back to the settings defaults when there is no
// previous breakdown or when it was never priced (zero rates). Staff actions
// seed a breakdown holding only a discount; that must not zero the VAT or
// deposit rates.
func CarriedPricingInputs(prev *models.Breakdown, settings *models.PricingSettings) (models.Discount, []models.ExtraFee, float64, float64) {
	discount := models.Discount{}
	var extraFees []models.ExtraFee
	vatRate := settings.DefaultVATRate
	depositPct := settings.DefaultDepositPct
	if prev != nil {
		discount = prev.Discount
		extraFees = prev.ExtraFees
		if prev.VATRate > 0 {
			vatRate = prev.VATRate
		}
		if prev.Deposit.Percentage > 0 {
			depositPct = prev.Deposit.Percentage
		}
	}
	return discount, extraFees, vatRate, depositPct
}

// ComputeBreakdown turns line items, fees, a discount and the tax rate into
// the authoritative monetary breakdown. Deterministic; the order of
// operations is fixed and every monetary value is rounded exactly once. Each
// line's ComputedTotal is written back into the given slices so the stored
// aggregate carries the priced lines the recap and the PDF print.
//
// A nil travel fee is treated as zero. A degraded travel fee (Error set)
// contributes zero and is carried through so every consumer can flag the
// estimate.
func ComputeBreakdown(
	services []models.ServiceLineItem,
	equipment []models.EquipmentLineItem,
	travel *models.TravelFee,
	extraFees []models.ExtraFee,
	discount models.Discount,
	taxRatePercent float64,
	depositPercent float64,
) (*models.Breakdown, error) {

	if err := ValidateLineItems(services, equipment); err != nil {
		return nil, err
	}

	var servicesSubtotal float64
	for i := range services {
		services[i].ComputedTotal = ServiceLineTotal(services[i])
		servicesSubtotal += services[i].ComputedTotal
	}
	servicesSubtotal = Round2(servicesSubtotal)

	var equipmentSubtotal float64
	for i := range equipment {
		equipment[i].ComputedTotal = EquipmentLineTotal(equipment[i])
		equipmentSubtotal += equipment[i].ComputedTotal
	}
	equipmentSubtotal = Round2(equipmentSubtotal)

	fee := models.TravelFee{}
	if travel != nil {
		fee = *travel
	}

	var extras float64
	for _, f := range extraFees {
		extras += f.Amount
	}

	preDiscount := Round2(servicesSubtotal + equipmentSubtotal + fee.Fee + extras)

	var discountAmount float64
	switch discount.Kind {
	case models.DiscountPercentage:
		discountAmount = preDiscount * discount.Value / 100
	case models.DiscountFixed:
		discountAmount = discount.Value
	}
	if discountAmount < 0 {
		discountAmount = 0
	}
	if discountAmount > preDiscount {
		discountAmount = preDiscount
	}
	discountAmount = Round2(discountAmount)

	postDiscount := Round2(preDiscount - discountAmount)
	vatAmount := Round2(postDiscount * taxRatePercent / 100)
	totalWithTax := Round2(postDiscount + vatAmount)
	depositAmount := Round2(totalWithTax * depositPercent / 100)
	remaining := Round2(totalWithTax - depositAmount)

	return &models.Breakdown{
		ServicesSubtotal:  servicesSubtotal,
		EquipmentSubtotal: equipmentSubtotal,
		TravelFee:         fee,
		ExtraFees:         extraFees,
		PreDiscountTotal:  preDiscount,
		Discount:          discount,
		DiscountAmount:    discountAmount,
		PostDiscountTotal: postDiscount,
		VATRate:           taxRatePercent,
		VATAmount:         vatAmount,
		TotalWithTax:      totalWithTax,
		Deposit: models.Deposit{
			Percentage: depositPercent,
			Amount:     depositAmount,
		},
		RemainingBalance: remaining,
		ComputedAt:       time.Now().UTC(),
	}, nil
}
