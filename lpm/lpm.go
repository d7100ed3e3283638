package lpm

// Matcher is a hybrid longest-prefix matcher with no bound on key length.
// Used by the unconstrained (Variant A) compressor, both during training
// (inserting newly merged tokens) and parsing (looking up matches).
//
// Short keys (<= 8 bytes) live in a direct hash map keyed by the masked
// word itself; long keys (> 8 bytes) are bucketed by their 8-byte prefix,
// with each bucket's suffixes kept sorted longest-first so the first
// match found is the longest.
type Matcher struct {
	longBuckets map[uint64][]uint16  // 8-byte prefix -> candidate token IDs, longest suffix first
	shortLookup map[prefixKey]uint16 // (masked word, length) -> token ID
	suffixArena []byte               // suffix bytes for long keys, beyond the 8-byte prefix
	endOffsets  []uint32             // per-token end offset into suffixArena; endOffsets[0] == 0
}

type prefixKey struct {
	word   uint64
	length uint8
}

// New creates an empty dynamic matcher.
func New() *Matcher {
	return &Matcher{
		longBuckets: make(map[uint64][]uint16),
		shortLookup: make(map[prefixKey]uint16),
		suffixArena: make([]byte, 0, 1<<16),
		endOffsets:  []uint32{0},
	}
}

// Insert adds entry under id. Token IDs must be inserted in increasing
// order starting from 0 (the suffix arena is indexed positionally by ID);
// IDs skipped between two inserts get an empty suffix span.
func (m *Matcher) Insert(entry []byte, id uint16) {
	for len(m.endOffsets) < int(id)+1 {
		m.endOffsets = append(m.endOffsets, uint32(len(m.suffixArena)))
	}

	if len(entry) > minMatch {
		prefix := loadU64LEMasked(entry, minMatch)
		m.suffixArena = append(m.suffixArena, entry[minMatch:]...)
		m.endOffsets = append(m.endOffsets, uint32(len(m.suffixArena)))

		bucket := m.longBuckets[prefix]
		bucket = append(bucket, id)
		// Insertion sort by decreasing suffix length: buckets grow one
		// entry at a time, so a single backward pass suffices.
		for i := len(bucket) - 1; i > 0; i-- {
			a, b := bucket[i], bucket[i-1]
			if m.suffixLen(a) > m.suffixLen(b) {
				bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
			} else {
				break
			}
		}
		m.longBuckets[prefix] = bucket
		return
	}

	// Single-byte tokens are the identity mapping (id == byte value) and
	// never need a hash entry; find's phase 2 falls back to data[0]
	// directly when nothing else matches.
	if len(entry) == 1 {
		m.endOffsets = append(m.endOffsets, uint32(len(m.suffixArena)))
		return
	}

	word := loadU64LEMasked(entry, len(entry))
	m.shortLookup[prefixKey{word: word, length: uint8(len(entry))}] = id
	m.endOffsets = append(m.endOffsets, uint32(len(m.suffixArena)))
}

func (m *Matcher) suffixLen(id uint16) int {
	return int(m.endOffsets[id+1]) - int(m.endOffsets[id])
}

// FindLongestMatch returns the ID and byte length of the longest inserted
// key that is a prefix of data, or ok=false if even a single byte can't
// be matched (which cannot happen once the 256 single-byte tokens are
// present).
func (m *Matcher) FindLongestMatch(data []byte) (id uint16, length int, ok bool) {
	if len(data) > minMatch {
		prefix := loadU64LEMasked(data, minMatch)
		suffix := data[minMatch:]

		if bucket, found := m.longBuckets[prefix]; found {
			for _, candidate := range bucket {
				if int(candidate)+1 >= len(m.endOffsets) {
					continue
				}
				start, end := m.endOffsets[candidate], m.endOffsets[candidate+1]
				if end > uint32(len(m.suffixArena)) || start > end {
					continue
				}
				want := m.suffixArena[start:end]
				if len(suffix) >= len(want) && hasBytePrefix(suffix, want) {
					return candidate, minMatch + len(want), true
				}
			}
		}
	}

	maxLen := minMatch
	if len(data) < maxLen {
		maxLen = len(data)
	}
	word := loadU64LEMasked(data, maxLen)
	for length := maxLen; length >= 2; length-- {
		masked := word & masks[length]
		if id, found := m.shortLookup[prefixKey{word: masked, length: uint8(length)}]; found {
			return id, length, true
		}
	}
	if len(data) > 0 {
		return uint16(data[0]), 1, true
	}
	return 0, 0, false
}

func hasBytePrefix(data, prefix []byte) bool {
	if len(prefix) > len(data) {
		return false
	}
	for i := range prefix {
		if data[i] != prefix[i] {
			return false
		}
	}
	return true
}
