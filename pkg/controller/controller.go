package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wattwise/wattwise/pkg/types"
)

// Controller handles the decision-making logic for the home.
type Controller struct {
}

// NewController creates a new Controller.
func NewController() *Controller {
	return &Controller{}
}

// Optimize derives the action plan for the current time step from the current
// reading and battery configuration. predictedDeficit is recorded on the plan
// but does not change which actions are chosen. Optimize is deterministic and
// only returns an error if the battery config or rates are unusable.
func (c *Controller) Optimize(
	ctx context.Context,
	current types.Reading,
	predictedDeficit float64,
	battery types.BatteryConfig,
	rates types.Rates,
) (types.ActionPlan, error) {
	if err := battery.Validate(); err != nil {
		return types.ActionPlan{}, err
	}
	if err := rates.Validate(); err != nil {
		return types.ActionPlan{}, err
	}

	net := current.NetKWH()
	level := current.BatteryLevel
	slog.DebugContext(ctx, "controller optimize started",
		slog.Float64("production", current.ProductionKWH),
		slog.Float64("consumption", current.ConsumptionKWH),
		slog.Float64("net", net),
		slog.Float64("batteryLevel", level),
		slog.Float64("predictedDeficit", predictedDeficit),
	)

	recommendations := make([]types.Recommendation, 0, 2)
	recommend := func(action types.ActionType, amount float64, priority int) {
		recommendations = append(recommendations, types.Recommendation{
			ActionType:  action,
			AmountKWH:   amount,
			Priority:    priority,
			Description: describe(action, amount),
		})
	}

	switch {
	case net > 0:
		// surplus: fill the battery up to the ceiling and sell the rest
		headroom := battery.HeadroomKWH(level)
		if level < battery.CeilingKWH() {
			recommend(types.ActionTypeStore, min(net, headroom), types.PriorityPrimary)
		}
		// a battery over the ceiling has no headroom, not negative headroom
		remaining := net - max(headroom, 0)
		if remaining > 0 {
			recommend(types.ActionTypeSell, remaining, types.PrioritySecondary)
		}
		slog.DebugContext(
			ctx,
			"surplus",
			slog.Float64("headroom", headroom),
			slog.Float64("remaining", remaining),
		)
	case net < 0:
		// deficit: draw from the battery down to the floor and buy the rest
		deficit := -net
		if level > battery.FloorKWH() {
			available := battery.AvailableKWH(level)
			use := min(deficit, available)
			recommend(types.ActionTypeUseBattery, use, types.PriorityPrimary)
			if remaining := deficit - use; remaining > 0 {
				recommend(types.ActionTypeBuy, remaining, types.PrioritySecondary)
			}
			slog.DebugContext(
				ctx,
				"deficit covered by battery",
				slog.Float64("deficit", deficit),
				slog.Float64("available", available),
			)
		} else {
			recommend(types.ActionTypeBuy, deficit, types.PriorityPrimary)
			slog.DebugContext(
				ctx,
				"deficit with battery at floor",
				slog.Float64("deficit", deficit),
				slog.Float64("floor", battery.FloorKWH()),
			)
		}
	default:
		// balanced: there is nothing to store, sell, use or buy
		slog.DebugContext(ctx, "balanced, no recommendation")
	}

	return types.ActionPlan{
		Recommendations:       recommendations,
		TotalSavingsPotential: savingsPotential(recommendations, rates),
		PredictedDeficitKWH:   predictedDeficit,
	}, nil
}

// savingsPotential values stored and sold energy at the store/sell rate and
// counts used and bought energy as a cost at the buy rate.
func savingsPotential(recommendations []types.Recommendation, rates types.Rates) float64 {
	earn := decimal.NewFromFloat(rates.StoreSellDollarsPerKWH)
	cost := decimal.NewFromFloat(rates.BuyDollarsPerKWH)
	total := decimal.Zero
	for _, r := range recommendations {
		amount := decimal.NewFromFloat(r.AmountKWH)
		if r.ActionType.Earns() {
			total = total.Add(amount.Mul(earn))
		} else {
			total = total.Sub(amount.Mul(cost))
		}
	}
	return total.InexactFloat64()
}

func describe(action types.ActionType, amount float64) string {
	switch action {
	case types.ActionTypeStore:
		return fmt.Sprintf("Store %.2f kWh in battery", amount)
	case types.ActionTypeSell:
		return fmt.Sprintf("Sell %.2f kWh to grid", amount)
	case types.ActionTypeUseBattery:
		return fmt.Sprintf("Use %.2f kWh from battery", amount)
	case types.ActionTypeBuy:
		return fmt.Sprintf("Buy %.2f kWh from grid", amount)
	default:
		return fmt.Sprintf("%s %.2f kWh", action, amount)
	}
}
