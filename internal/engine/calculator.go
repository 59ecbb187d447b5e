package engine

import "github.com/SamyaDeb/FarmerShield/internal/models"

// Each breaching metric contributes a flat quarter of the coverage amount.
// Shares sum; they never compound.
const perMetricShare = 0.25

// CalculatePayout converts breach results and the farmer's policy into a payout
// amount. payable is false when the policy cannot pay at all (inactive or
// non-positive coverage); the coordinator must not create a claim in that case.
// The returned amount never exceeds the coverage amount, even when all four
// metrics breach and floating summation overshoots 1.0.
func CalculatePayout(breaches map[string]models.BreachResult, policy *models.InsurancePolicy) (amount float64, payable bool) {
	if !policy.IsActive() || policy.CoverageAmount <= 0 {
		return 0, false
	}

	multiplier := 0.0
	for _, breach := range breaches {
		if breach.Exceeded {
			multiplier += perMetricShare
		}
	}

	if multiplier == 0 {
		return 0, true
	}

	amount = policy.CoverageAmount * multiplier
	if amount > policy.CoverageAmount {
		amount = policy.CoverageAmount
	}

	return amount, true
}
