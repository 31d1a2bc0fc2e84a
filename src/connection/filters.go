package connection

// FilterByUser returns the connections belonging to the given user,
// preserving input order.
func FilterByUser(conns []Connection, userID string) []Connection {
	out := make([]Connection, 0)
	for _, c := range conns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// FilterByRole returns the connections holding the given role.
func FilterByRole(conns []Connection, role string) []Connection {
	out := make([]Connection, 0)
	for _, c := range conns {
		if c.HasRole(role) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByMetadata returns the connections whose metadata satisfies pred.
func FilterByMetadata(conns []Connection, pred func(map[string]any) bool) []Connection {
	out := make([]Connection, 0)
	for _, c := range conns {
		if pred(c.Metadata) {
			out = append(out, c)
		}
	}
	return out
}
