package forecast

import (
	"math"

	"github.com/wattwise/wattwise/pkg/types"
)

// AggregateDeficit sums the shortfall of every hour where predicted
// consumption exceeds predicted production. Hours with a surplus contribute
// nothing so the result is never negative. When the shortfall happens is
// intentionally discarded.
func AggregateDeficit(predictions []types.Prediction) float64 {
	var total float64
	for _, p := range predictions {
		shortfall := p.PredictedConsumptionKWH - p.PredictedProductionKWH
		if math.IsNaN(shortfall) || shortfall <= 0 {
			continue
		}
		total += shortfall
	}
	return total
}
