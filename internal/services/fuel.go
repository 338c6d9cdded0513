package services

import (
	"github.com/shopspring/decimal"

	"fleetops/internal/domain/models"
)

// driverAmount is the resolved money side of a driver booking payment.
type driverAmount struct {
	FuelQuantity   *float64
	ComputedAmount *float64
	Amount         float64
}

// resolveDriverAmount derives the fuel quantity from distance and mileage when
// it is missing, prices it at the fuel rate, and picks the posted amount: the
// computed figure for fuel-basis, otherwise the supplied amount, otherwise 0.
func resolveDriverAmount(mode models.DriverPaymentMode, amount, qty, rate, distance, mileage *float64) driverAmount {
	out := driverAmount{FuelQuantity: qty}

	if out.FuelQuantity == nil && distance != nil && mileage != nil && *mileage > 0 {
		d, m := decimal.NewFromFloat(*distance), decimal.NewFromFloat(*mileage)
		q := d.Div(m).InexactFloat64()
		out.FuelQuantity = &q
		if rate != nil {
			// distance * rate / mileage, with no intermediate rounding
			c := d.Mul(decimal.NewFromFloat(*rate)).Div(m).Round(2).InexactFloat64()
			out.ComputedAmount = &c
		}
	} else if out.FuelQuantity != nil && rate != nil {
		c := decimal.NewFromFloat(*out.FuelQuantity).Mul(decimal.NewFromFloat(*rate)).Round(2).InexactFloat64()
		out.ComputedAmount = &c
	}

	switch {
	case mode == models.ModeFuelBasis && out.ComputedAmount != nil:
		out.Amount = *out.ComputedAmount
	case amount != nil:
		out.Amount = *amount
	}
	return out
}
