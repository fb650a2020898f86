package types

// ActionType is the kind of action recommended for the current time step.
type ActionType string

const (
	ActionTypeStore      ActionType = "STORE"
	ActionTypeSell       ActionType = "SELL"
	ActionTypeUseBattery ActionType = "USE_BATTERY"
	ActionTypeBuy        ActionType = "BUY"
)

// Earns returns true for actions that generate value (storing or selling
// surplus) rather than cost.
func (a ActionType) Earns() bool {
	return a == ActionTypeStore || a == ActionTypeSell
}

const (
	PriorityPrimary   = 1
	PrioritySecondary = 2
)

// Recommendation is a single quantified action.
type Recommendation struct {
	ActionType  ActionType `json:"actionType"`
	AmountKWH   float64    `json:"amount"`
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
}

// ActionPlan is the output of a single optimization. Recommendations are
// ordered by priority and there is at most one recommendation per priority.
type ActionPlan struct {
	Recommendations       []Recommendation `json:"recommendations"`
	TotalSavingsPotential float64          `json:"totalSavingsPotential"`
	// PredictedDeficitKWH is the forecast deficit the plan was made with. The
	// current policy does not act on it.
	PredictedDeficitKWH float64 `json:"predictedDeficit"`
}

// Rates are the unit values used to estimate the savings of a plan.
type Rates struct {
	StoreSellDollarsPerKWH float64 `json:"storeSellDollarsPerKWH"`
	BuyDollarsPerKWH       float64 `json:"buyDollarsPerKWH"`
}

// DefaultRates values stored or sold energy lower than bought energy costs.
func DefaultRates() Rates {
	return Rates{
		StoreSellDollarsPerKWH: 0.15,
		BuyDollarsPerKWH:       0.20,
	}
}
