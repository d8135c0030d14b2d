package notification

// entry is a working-set slot. seq orders admission; lower is seen first.
type entry struct {
	n   Notification
	seq uint64
}

// groupKey identifies a duplicate group. Fields are kept apart so text that
// contains separators cannot collide.
type groupKey struct {
	byEntity bool
	a, b, c  string
}

// dedupKey groups duplicates: the entity reference when both halves are
// present, otherwise the display text and type.
func dedupKey(n *Notification) groupKey {
	if n.EntityID != "" && n.EntityType != "" {
		return groupKey{byEntity: true, a: n.EntityID, b: n.EntityType}
	}
	return groupKey{a: n.Title, b: n.Message, c: string(n.Type)}
}

// normalize drops hidden, self-originated and duplicate entries while
// keeping display order. Of each duplicate group the entry with the lowest
// seq survives, so repeated application is a no-op.
func normalize(items []entry, op *Operator, admins *AdminSet) []entry {
	first := make(map[groupKey]uint64, len(items))
	for i := range items {
		if admit(&items[i].n, op, admins) != "" {
			continue
		}
		key := dedupKey(&items[i].n)
		if seq, ok := first[key]; !ok || items[i].seq < seq {
			first[key] = items[i].seq
		}
	}

	out := make([]entry, 0, len(items))
	for _, e := range items {
		if admit(&e.n, op, admins) != "" {
			continue
		}
		if first[dedupKey(&e.n)] != e.seq {
			continue
		}
		out = append(out, e)
	}
	return out
}
