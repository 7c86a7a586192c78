package models

// ActionSide distinguishes rebalance buys from sells.
type ActionSide string

const (
	ActionBuy  ActionSide = "buy"
	ActionSell ActionSide = "sell"
)

// RebalanceAction is one computed weight delta moving the current allocation
// toward a target. Amount is the signed weight change (positive for buys).
type RebalanceAction struct {
	Symbol string     `json:"symbol"`
	Action ActionSide `json:"action"`
	Amount float64    `json:"amount"`
}
