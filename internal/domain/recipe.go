package domain

// ─── Reward & Recipe Catalog ────────────────────────────────────────────────
// The catalog is static at runtime: the economy core only ever reads it.

// Reward is a grantable item (lottery prize or crafting material/result).
type Reward struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"` // inactive rewards are excluded from the lottery pool
}

// RecipeMaterial is one required ingredient of a recipe.
type RecipeMaterial struct {
	RewardID string `json:"reward_id"`
	Quantity int64  `json:"quantity"` // required on-hand quantity, > 0
}

// Recipe maps a set of required reward quantities to one produced reward.
type Recipe struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	ResultRewardID string           `json:"result_reward_id"`
	Materials      []RecipeMaterial `json:"materials"`
}

// ─── Crafting Results ───────────────────────────────────────────────────────

// ConsumedMaterial reports one material debited by a successful redemption.
type ConsumedMaterial struct {
	RewardID string `json:"reward_id"`
	Quantity int64  `json:"quantity"`
}

// RedeemResult is the outcome of a successful recipe redemption. The
// consume and produce rows share one transaction group: they were
// committed together or not at all.
type RedeemResult struct {
	ResultRewardID    string             `json:"result_reward_id"`
	ResultRewardName  string             `json:"result_reward_name"`
	MaterialsConsumed []ConsumedMaterial `json:"materials_consumed"`
	TransactionGroup  string             `json:"transaction_group"`
}

// MaterialShortfall describes one material the user lacks. A failed
// redemption carries the complete list, not just the first short item.
type MaterialShortfall struct {
	RewardID string `json:"reward_id"`
	Required int64  `json:"required"`
	Current  int64  `json:"current"`
}
