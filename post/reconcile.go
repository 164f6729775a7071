package post

// reconcileTags computes the association changes that turn current into the
// requested tag set. In merge mode only the missing tags are connected and
// nothing is disconnected. In overwrite mode tags outside desired are
// disconnected as well, so the result is exactly desired.
func reconcileTags(current, desired []int64, overwrite bool) (connect, disconnect []int64) {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		if _, dup := want[id]; dup {
			continue
		}
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			connect = append(connect, id)
		}
	}
	if !overwrite {
		return connect, nil
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			disconnect = append(disconnect, id)
		}
	}
	return connect, disconnect
}

// uniqueIDs drops repeated identifiers, keeping first occurrences in order.
func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
