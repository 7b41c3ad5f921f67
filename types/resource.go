package types

// ResourceRecord is one normalized AWS object as a flat mapping of
// display field name to value. Each service defines its own field set;
// there is no shared schema beyond the tag-derived Name/Environment
// convention.
type ResourceRecord map[string]any

// String returns the record's value for key as a string, or "" when the
// key is absent or not a string.
func (r ResourceRecord) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// ResourceCollection maps a human-readable category label ("EC2
// Instances", "S3 Buckets", ...) to its ordered records. Once an
// aggregation succeeds every expected label is present, empty slice at
// worst, so consumers can always index by label.
type ResourceCollection map[string][]ResourceRecord

// Total counts records across all labels.
func (c ResourceCollection) Total() int {
	n := 0
	for _, records := range c {
		n += len(records)
	}
	return n
}

// Filter returns a sub-collection restricted to the given labels.
// Labels missing from the collection are carried as empty slices so the
// partial view keeps the always-present invariant.
func (c ResourceCollection) Filter(labels []string) ResourceCollection {
	out := make(ResourceCollection, len(labels))
	for _, label := range labels {
		records := c[label]
		if records == nil {
			records = []ResourceRecord{}
		}
		out[label] = records
	}
	return out
}
