package monitor

// Filter partitions fetched candidates into new and already-seen mentions
// using the identity policy.
type Filter struct {
	identity *IdentityPolicy
}

// NewFilter builds a Filter over the given identity policy.
func NewFilter(identity *IdentityPolicy) *Filter {
	return &Filter{identity: identity}
}

// Partition routes each candidate to fresh if its identifier is absent from
// seen and has not already been routed to fresh within this batch, else to
// skipped. The partition is stable and lossless: fresh preserves input order
// and every candidate lands in exactly one of the two slices. seen is never
// mutated; the caller decides when to persist.
//
// A candidate whose identifier cannot be computed is routed to skipped: an
// item without a stable identity can never be deduplicated, so it is never
// safe to notify about.
func (f *Filter) Partition(candidates []Mention, seen map[string]struct{}) (fresh, skipped []Mention) {
	batch := make(map[string]struct{}, len(candidates))
	for _, m := range candidates {
		id, err := f.identity.ComputeID(m.Source, m.URL)
		if err != nil {
			skipped = append(skipped, m)
			continue
		}
		m.ID = id
		if _, ok := seen[id]; ok {
			skipped = append(skipped, m)
			continue
		}
		if _, ok := batch[id]; ok {
			skipped = append(skipped, m)
			continue
		}
		batch[id] = struct{}{}
		fresh = append(fresh, m)
	}
	return fresh, skipped
}
