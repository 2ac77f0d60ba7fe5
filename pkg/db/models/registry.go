package models

// All lists every persisted model in dependency order. Used by sqlite schema bootstrap and tests.
func All() []any {
	return []any{
		&User{},
		&Store{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderSequence{},
		&StockAdjustment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
