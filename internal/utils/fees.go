package utils

import (
	"github.com/shopspring/decimal"

	"rentdesk-backend/internal/domain"
)

// FeeBreakdown splits one customer-facing charge between the team and the platform.
// Charge always equals Amount + PlatformFee.
type FeeBreakdown struct {
	Amount      int64 `json:"amount_cents"`
	PlatformFee int64 `json:"platform_fee_cents"`
	Charge      int64 `json:"charge_cents"`
}

// Platform fee rates per plan tier. Lower tiers pay the higher rate.
var feeRates = map[domain.PlanTier]decimal.Decimal{
	domain.PlanTierFree:       decimal.RequireFromString("0.05"),
	domain.PlanTierPro:        decimal.RequireFromString("0.03"),
	domain.PlanTierEnterprise: decimal.RequireFromString("0.015"),
}

// FeeRate returns the rate for tier; unknown or empty tiers get the free rate.
func FeeRate(tier domain.PlanTier) decimal.Decimal {
	if rate, ok := feeRates[tier]; ok {
		return rate
	}
	return feeRates[domain.PlanTierFree]
}

type FeeCalculator struct {
	serviceFeeCents int64
}

// NewFeeCalculator builds a calculator. serviceFeeCents is the flat fee added to
// the initial checkout of a reservation.
func NewFeeCalculator(serviceFeeCents int64) *FeeCalculator {
	if serviceFeeCents < 0 {
		serviceFeeCents = 0
	}
	return &FeeCalculator{serviceFeeCents: serviceFeeCents}
}

// Fee applies the tier rate to amountCents. The platform fee is rounded half-up to
// the cent once, here, and every caller reuses the returned breakdown.
func (c *FeeCalculator) Fee(amountCents int64, tier domain.PlanTier) FeeBreakdown {
	fee := decimal.NewFromInt(amountCents).Mul(FeeRate(tier)).Round(0).IntPart()
	return breakdown(amountCents, fee)
}

// ServiceFee charges the flat service fee on top of amountCents.
func (c *FeeCalculator) ServiceFee(amountCents int64) FeeBreakdown {
	return breakdown(amountCents, c.serviceFeeCents)
}

func breakdown(amount, fee int64) FeeBreakdown {
	return FeeBreakdown{
		Amount:      amount,
		PlatformFee: fee,
		Charge:      amount + fee,
	}
}
