package models

// All lists every persisted model, for sqlite schema setup in tests and local runs.
func All() []any {
	return []any{
		&Permission{},
		&Role{},
		&User{},
		&SearchQuery{},
		&Lead{},
		&OutboxEvent{},
	}
}
