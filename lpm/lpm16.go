package lpm

import (
	"github.com/cespare/xxhash/v2"
)

const (
	nInlineSuffixes = 4
	maxBucketSize   = 128
)

type prefixKey16 struct {
	word   uint64
	length uint8
}

// Matcher16 is the dynamic longest-prefix matcher for the 16-byte
// constrained (Variant B) compressor's training phase. It differs from
// Matcher in that long-key suffixes are capped at 8 bytes (since the
// whole key is capped at 16), so they fit in a single masked word instead
// of needing a byte-slice comparison.
type Matcher16 struct {
	short   map[prefixKey16]uint16
	buckets map[uint64][]bucketEntry
}

type bucketEntry struct {
	suffix uint64
	length uint8
	id     uint16
}

// New16 creates an empty dynamic matcher for training a Variant B dictionary.
func New16() *Matcher16 {
	return &Matcher16{
		short:   make(map[prefixKey16]uint16),
		buckets: make(map[uint64][]bucketEntry),
	}
}

// Insert adds data under id. Returns false if the 8-byte prefix's bucket
// is already at the soft cap (maxBucketSize); the caller (the learner)
// silently drops the merge on refusal and keeps going.
func (m *Matcher16) Insert(data []byte, id uint16) bool {
	length := len(data)
	if length <= 8 {
		word := loadU64LEMasked(data, length)
		m.short[prefixKey16{word: word, length: uint8(length)}] = id
		return true
	}

	prefix := loadU64LEMasked(data, 8)
	bucket := m.buckets[prefix]
	if len(bucket) >= maxBucketSize {
		return false
	}

	suffixLen := length - 8
	suffix := loadU64LEMasked(data[8:], suffixLen)
	bucket = append(bucket, bucketEntry{suffix: suffix, length: uint8(suffixLen), id: id})

	for i := len(bucket) - 1; i > 0; i-- {
		if bucket[i].length > bucket[i-1].length {
			bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
		} else {
			break
		}
	}
	m.buckets[prefix] = bucket
	return true
}

// FindLongestMatch mirrors Matcher.FindLongestMatch but exploits the
// 16-byte bound: suffixes are single masked words, so comparison is a
// bitwise isPrefix check instead of a byte-slice scan.
func (m *Matcher16) FindLongestMatch(data []byte) (id uint16, length int, ok bool) {
	if len(data) > 8 {
		suffixLen := min(len(data), 16) - 8
		prefix := loadU64LEMasked(data, 8)
		suffix := loadU64LEMasked(data[8:], suffixLen)

		if bucket, found := m.buckets[prefix]; found {
			for _, entry := range bucket {
				if isPrefix(suffix, entry.suffix, suffixLen, int(entry.length)) {
					return entry.id, 8 + int(entry.length), true
				}
			}
		}
	}

	maxLen := min(8, len(data))
	word := loadU64LEMasked(data, maxLen)
	for length := maxLen; length >= 1; length-- {
		masked := word & masks[length]
		if id, found := m.short[prefixKey16{word: masked, length: uint8(length)}]; found {
			return id, length, true
		}
	}
	return 0, 0, false
}

// Finalize rebuilds the dynamic matcher into a read-only, perfect-hash
// indexed structure optimized for the parsing phase's hot loop.
func (m *Matcher16) Finalize() *StaticMatcher16 {
	longInfoByPrefix := make(map[uint64]*longRecord)
	var overflow []bucketEntry

	for prefix, bucket := range m.buckets {
		answerID, answerLength, _ := m.FindLongestMatch(u64ToBytesLE(prefix))

		rec := &longRecord{
			prefix:       prefix,
			answerID:     answerID,
			answerLength: uint8(answerLength),
			offset:       uint16(len(overflow)),
		}

		inlineCount := min(nInlineSuffixes, len(bucket))
		for i := 0; i < inlineCount; i++ {
			rec.inlineSuffixes[i] = bucket[i].suffix
			rec.inlineLengths[i] = bucket[i].length
			rec.inlineIDs[i] = bucket[i].id
		}
		rec.nSuffixes = uint16(len(bucket))
		for i := nInlineSuffixes; i < len(bucket); i++ {
			overflow = append(overflow, bucket[i])
		}

		longInfoByPrefix[prefix] = rec
	}

	// Promote length-8 short keys into the long-prefix set so every
	// 8-byte prefix has one canonical record (spec finalize step 1).
	shortKeys := make(map[prefixKey16]uint16)
	for key, id := range m.short {
		if key.length == 8 {
			if _, exists := longInfoByPrefix[key.word]; !exists {
				longInfoByPrefix[key.word] = &longRecord{
					prefix:       key.word,
					answerID:     id,
					answerLength: key.length,
				}
			}
			continue
		}
		shortKeys[key] = id
	}

	prefixes := make([]uint64, 0, len(longInfoByPrefix))
	for prefix := range longInfoByPrefix {
		prefixes = append(prefixes, prefix)
	}
	phf := newPerfectHash(prefixes)

	longInfo := make([]*longRecord, phf.tableSize)
	for prefix, rec := range longInfoByPrefix {
		longInfo[phf.index(prefix)] = rec
	}

	return &StaticMatcher16{
		short:    shortKeys,
		phf:      phf,
		longInfo: longInfo,
		overflow: overflow,
	}
}

// longRecord is the cache-line-sized per-prefix record built by Finalize:
// up to 4 suffixes stored inline, the rest referenced via offset/nSuffixes
// into the shared overflow array.
type longRecord struct {
	prefix         uint64
	inlineSuffixes [nInlineSuffixes]uint64
	inlineLengths  [nInlineSuffixes]uint8
	inlineIDs      [nInlineSuffixes]uint16
	nSuffixes      uint16
	offset         uint16
	answerID       uint16
	answerLength   uint8
}

// StaticMatcher16 is the read-only, perfect-hash-indexed matcher used
// during parsing once training (and Finalize) has completed.
type StaticMatcher16 struct {
	short    map[prefixKey16]uint16
	phf      *perfectHash
	longInfo []*longRecord
	overflow []bucketEntry
}

// FindLongestMatch performs the optimized parse-time lookup: hash the
// 8-byte prefix, verify against the stored prefix to detect a spurious
// perfect-hash index, then scan inline suffixes before falling back to
// the overflow bucket and finally the prefix's own default answer.
func (s *StaticMatcher16) FindLongestMatch(data []byte) (id uint16, length int, ok bool) {
	if len(data) >= 8 {
		suffixLen := min(len(data), 16) - 8
		prefix := loadU64LEMasked(data, 8)
		suffix := loadU64LEMasked(data[8:], suffixLen)

		if id, length, found := s.matchLongPrefix(prefix, suffix, suffixLen); found {
			return id, length, true
		}
	}

	maxLen := min(7, len(data))
	word := loadU64LEMasked(data, min(8, len(data)))
	for length := maxLen; length >= 1; length-- {
		masked := word & masks[length]
		if id, found := s.short[prefixKey16{word: masked, length: uint8(length)}]; found {
			return id, length, true
		}
	}
	return 0, 0, false
}

func (s *StaticMatcher16) matchLongPrefix(prefix, suffix uint64, suffixLen int) (uint16, int, bool) {
	idx := s.phf.index(prefix)
	if idx >= len(s.longInfo) || s.longInfo[idx] == nil || s.longInfo[idx].prefix != prefix {
		return 0, 0, false
	}
	rec := s.longInfo[idx]

	inlineCount := min(nInlineSuffixes, int(rec.nSuffixes))
	for i := 0; i < inlineCount; i++ {
		if isPrefix(suffix, rec.inlineSuffixes[i], suffixLen, int(rec.inlineLengths[i])) {
			return rec.inlineIDs[i], 8 + int(rec.inlineLengths[i]), true
		}
	}

	if int(rec.nSuffixes) > nInlineSuffixes {
		start := int(rec.offset)
		end := start + int(rec.nSuffixes) - nInlineSuffixes
		for i := start; i < end; i++ {
			entry := s.overflow[i]
			if isPrefix(suffix, entry.suffix, suffixLen, int(entry.length)) {
				return entry.id, 8 + int(entry.length), true
			}
		}
	}

	return rec.answerID, int(rec.answerLength), true
}

// perfectHash is a displacement-based perfect hash over a fixed key set,
// built once at Finalize time. It is not minimal: the table holds about
// 5% more slots than keys (at least one spare). index is collision-free
// for keys that were in the build set; callers must still verify the
// stored key to detect a spurious index for keys outside the set.
type perfectHash struct {
	displacements []uint32
	tableSize     int
	seed1, seed2  uint64
}

func newPerfectHash(keys []uint64) *perfectHash {
	if len(keys) == 0 {
		return &perfectHash{seed2: 1, tableSize: 1, displacements: []uint32{0}}
	}

	tableSize := (len(keys) * 105) / 100
	if tableSize < len(keys)+1 {
		tableSize = len(keys) + 1
	}

	seed1 := uint64(0x517cc1b727220a95)
	seed2 := uint64(0x8b51f5e3e9f0d2af)

	for attempt := 0; attempt < 100; attempt++ {
		if ph, ok := tryBuildPerfectHash(keys, tableSize, seed1, seed2); ok {
			return ph
		}
		seed1 = xxhash.Sum64(u64ToBytesLE(seed1))
		seed2 = xxhash.Sum64(u64ToBytesLE(seed2))
	}

	// Exceedingly unlikely with the 1.05x table and 100 seed attempts;
	// fall back to a larger table so the zero-value displacement slice
	// still yields a dense, if non-perfect, index range.
	tableSize = len(keys) * 2
	return &perfectHash{
		displacements: make([]uint32, tableSize),
		tableSize:     tableSize,
		seed1:         seed1,
		seed2:         seed2,
	}
}

func tryBuildPerfectHash(keys []uint64, tableSize int, seed1, seed2 uint64) (*perfectHash, bool) {
	displacements := make([]uint32, tableSize)
	occupied := make([]bool, tableSize)
	buckets := make(map[int][]uint64)
	for _, key := range keys {
		h := primaryHash(key, seed1, tableSize)
		buckets[h] = append(buckets[h], key)
	}

	order := make([]int, 0, len(buckets))
	for idx := range buckets {
		order = append(order, idx)
	}
	sortByBucketSizeDesc(order, buckets)

	for _, bucketIdx := range order {
		bucketKeys := buckets[bucketIdx]
		found := false
		for d := uint32(0); d < uint32(tableSize*2); d++ {
			positions := make([]int, len(bucketKeys))
			seen := make(map[int]bool, len(bucketKeys))
			valid := true
			for i, key := range bucketKeys {
				pos := secondaryHash(key, d, seed2, tableSize)
				if occupied[pos] || seen[pos] {
					valid = false
					break
				}
				seen[pos] = true
				positions[i] = pos
			}
			if valid {
				displacements[bucketIdx] = d
				for _, pos := range positions {
					occupied[pos] = true
				}
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	return &perfectHash{
		displacements: displacements,
		tableSize:     tableSize,
		seed1:         seed1,
		seed2:         seed2,
	}, true
}

func sortByBucketSizeDesc(order []int, buckets map[int][]uint64) {
	for i := range order {
		for j := i + 1; j < len(order); j++ {
			if len(buckets[order[j]]) > len(buckets[order[i]]) {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
}

func (p *perfectHash) index(key uint64) int {
	if p.tableSize == 0 {
		return 0
	}
	h := primaryHash(key, p.seed1, p.tableSize)
	var d uint32
	if h < len(p.displacements) {
		d = p.displacements[h]
	}
	return secondaryHash(key, d, p.seed2, p.tableSize)
}

func primaryHash(key, seed uint64, tableSize int) int {
	h := key ^ seed
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func secondaryHash(key uint64, displacement uint32, seed uint64, tableSize int) int {
	h := key ^ seed ^ uint64(displacement)
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
