package logstore

// ring is a fixed-capacity circular buffer of entries.
// It is not safe for concurrent use; Store serializes access.
type ring struct {
	entries []Entry
	size    int
	head    int
	count   int
}

func newRing(size int) *ring {
	return &ring{
		entries: make([]Entry, size),
		size:    size,
	}
}

// write adds an entry, overwriting the oldest one if full.
// Reports whether an entry was evicted.
func (r *ring) write(entry Entry) bool {
	evicted := r.count == r.size

	r.entries[r.head] = entry
	r.head = (r.head + 1) % r.size

	if r.count < r.size {
		r.count++
	}
	return evicted
}

// newest returns up to limit entries, newest first. limit <= 0 means all.
func (r *ring) newest(limit int) []Entry {
	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	if n == 0 {
		return nil
	}

	result := make([]Entry, n)
	idx := r.head
	for i := 0; i < n; i++ {
		idx = (idx - 1 + r.size) % r.size
		result[i] = r.entries[idx]
	}
	return result
}

// oldest returns all entries in chronological order.
func (r *ring) oldest() []Entry {
	if r.count == 0 {
		return nil
	}

	result := make([]Entry, r.count)
	if r.count < r.size {
		copy(result, r.entries[:r.count])
	} else {
		firstPart := r.entries[r.head:]
		secondPart := r.entries[:r.head]
		copy(result, firstPart)
		copy(result[len(firstPart):], secondPart)
	}
	return result
}
