package purchases

// Models lists every table owned by this package, in migration order.
func Models() []any {
	return []any{
		&JointPurchase{},
		&Participant{},
		&HistoryEntry{},
	}
}
