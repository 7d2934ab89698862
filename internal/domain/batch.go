package domain

// Batch is the ordered set of records produced by one run.
type Batch struct {
	Records []Record
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{Records: make([]Record, 0)}
}

// Add appends a record, keeping encounter order.
func (b *Batch) Add(r Record) {
	b.Records = append(b.Records, r)
}

// Size returns the number of records.
func (b *Batch) Size() int {
	return len(b.Records)
}

// Unique returns the records with duplicate identity keys removed. The first
// occurrence of each key wins and order is preserved.
func (b *Batch) Unique() []Record {
	seen := make(map[string]struct{}, len(b.Records))
	out := make([]Record, 0, len(b.Records))
	for _, r := range b.Records {
		k := r.IdentityKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
