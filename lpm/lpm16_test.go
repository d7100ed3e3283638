package lpm

import "testing"

func insertSingleBytes16(m *Matcher16) {
	for i := 0; i < 256; i++ {
		m.Insert([]byte{byte(i)}, uint16(i))
	}
}

func TestMatcher16SingleBytes(t *testing.T) {
	m := New16()
	insertSingleBytes16(m)

	for i := 0; i < 256; i++ {
		id, length, ok := m.FindLongestMatch([]byte{byte(i)})
		if !ok || id != uint16(i) || length != 1 {
			t.Fatalf("byte %d: got (%d, %d, %v)", i, id, length, ok)
		}
	}
}

func TestMatcher16LongestMatch(t *testing.T) {
	m := New16()
	insertSingleBytes16(m)
	m.Insert([]byte("user_"), 256)
	m.Insert([]byte("user_0001"), 257)

	id, length, ok := m.FindLongestMatch([]byte("user_0001rest"))
	if !ok || id != 257 || length != len("user_0001") {
		t.Fatalf("got (%d, %d, %v), want (257, %d, true)", id, length, ok, len("user_0001"))
	}
}

func TestMatcher16FinalizeEquivalence(t *testing.T) {
	m := New16()
	insertSingleBytes16(m)
	words := []string{"user_0001", "user_0002", "admin_01", "guest", "abcdefgh12345678"[:16]}
	id := uint16(300)
	for _, w := range words {
		m.Insert([]byte(w), id)
		id++
	}

	static := m.Finalize()

	inputs := []string{
		"user_0001abc",
		"user_0002xyz",
		"admin_01!!",
		"guest_tail",
		"abcdefgh12345678",
		"unmatched_",
	}
	for _, in := range inputs {
		wantID, wantLen, wantOK := m.FindLongestMatch([]byte(in))
		gotID, gotLen, gotOK := static.FindLongestMatch([]byte(in))
		if wantOK != gotOK {
			t.Fatalf("%q: dynamic ok=%v static ok=%v", in, wantOK, gotOK)
		}
		if wantOK && (wantID != gotID || wantLen != gotLen) {
			t.Fatalf("%q: dynamic (%d,%d) static (%d,%d)", in, wantID, wantLen, gotID, gotLen)
		}
	}
}

func TestMatcher16OverflowBucket(t *testing.T) {
	m := New16()
	insertSingleBytes16(m)

	// Force many entries sharing the same 8-byte prefix into one bucket,
	// past nInlineSuffixes, to exercise the overflow path after Finalize.
	base := "prefix01"
	id := uint16(300)
	suffixes := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	for _, suf := range suffixes {
		m.Insert([]byte(base+suf), id)
		id++
	}

	static := m.Finalize()
	for i, suf := range suffixes {
		want := uint16(300 + i)
		gotID, gotLen, ok := static.FindLongestMatch([]byte(base + suf + "_tail"))
		if !ok || gotID != want || gotLen != len(base+suf) {
			t.Fatalf("suffix %q: got (%d, %d, %v), want (%d, %d, true)", suf, gotID, gotLen, ok, want, len(base+suf))
		}
	}
}
