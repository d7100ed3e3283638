package lpm

import (
	"math/bits"
	"sort"
	"testing"
)

// bruteForceLongestMatch is the naive reference: scan every inserted
// entry and keep the longest whose bytes prefix data. It exists only
// to check Matcher/Matcher16 against an obviously-correct but slow
// implementation.
func bruteForceLongestMatch(entries map[string]uint16, data []byte) (uint16, int, bool) {
	bestID, bestLen, found := uint16(0), -1, false
	for entry, id := range entries {
		if len(entry) > len(data) || len(entry) == 0 {
			continue
		}
		if string(data[:len(entry)]) != entry {
			continue
		}
		if len(entry) > bestLen {
			bestID, bestLen, found = id, len(entry), true
		}
	}
	return bestID, bestLen, found
}

func deterministicEntries(seed uint64, n, maxLen int) map[string]uint16 {
	entries := make(map[string]uint16, n+256)
	for i := 0; i < 256; i++ {
		entries[string([]byte{byte(i)})] = uint16(i)
	}
	state := seed
	next := func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state
	}
	nextByte := func() byte {
		return byte(bits.RotateLeft64(next(), 7))
	}
	for i := 0; i < n; i++ {
		length := 2 + int(next()%uint64(maxLen-1)) // 2..maxLen bytes
		buf := make([]byte, length)
		for j := range buf {
			buf[j] = nextByte() % 6 // small alphabet, forces shared prefixes
		}
		entries[string(buf)] = uint16(256 + i)
	}
	return entries
}

func randomProbe(seed uint64, length int) []byte {
	state := seed
	next := func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = byte(next()) % 6
	}
	return buf
}

func TestMatcherMatchesBruteForceReference(t *testing.T) {
	entries := deterministicEntries(12345, 64, 24)

	// Matcher.Insert indexes its suffix arena positionally by id, so
	// entries must be inserted in increasing id order (map iteration
	// order is randomized, so sort explicitly).
	byEntry := make([]string, 0, len(entries))
	for entry := range entries {
		byEntry = append(byEntry, entry)
	}
	sort.Slice(byEntry, func(i, j int) bool { return entries[byEntry[i]] < entries[byEntry[j]] })

	m := New()
	for _, entry := range byEntry {
		m.Insert([]byte(entry), entries[entry])
	}

	for trial := 0; trial < 200; trial++ {
		probe := randomProbe(uint64(trial+1)*2654435761, 24)

		wantID, wantLen, wantOK := bruteForceLongestMatch(entries, probe)
		gotID, gotLen, gotOK := m.FindLongestMatch(probe)

		if gotOK != wantOK {
			t.Fatalf("trial %d: ok = %v, want %v (probe %x)", trial, gotOK, wantOK, probe)
		}
		if !wantOK {
			continue
		}
		if gotLen != wantLen {
			t.Fatalf("trial %d: length = %d, want %d (probe %x)", trial, gotLen, wantLen, probe)
		}
		if gotID != wantID {
			t.Fatalf("trial %d: id = %d, want %d (probe %x)", trial, gotID, wantID, probe)
		}
	}
}

func TestMatcher16StaticMatchesBruteForceReference(t *testing.T) {
	entries := deterministicEntries(98765, 40, 16)

	m := New16()
	for entry, id := range entries {
		m.Insert([]byte(entry), id)
	}
	static := m.Finalize()

	for trial := 0; trial < 200; trial++ {
		probe := randomProbe(uint64(trial+1)*40503, 16)

		wantID, wantLen, wantOK := bruteForceLongestMatch(entries, probe)
		gotID, gotLen, gotOK := static.FindLongestMatch(probe)

		if gotOK != wantOK {
			t.Fatalf("trial %d: ok = %v, want %v (probe %x)", trial, gotOK, wantOK, probe)
		}
		if !wantOK {
			continue
		}
		if gotLen != wantLen {
			t.Fatalf("trial %d: length = %d, want %d (probe %x)", trial, gotLen, wantLen, probe)
		}
		if gotID != wantID {
			t.Fatalf("trial %d: id = %d, want %d (probe %x)", trial, gotID, wantID, probe)
		}
	}
}
