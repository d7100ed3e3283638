package lpm

import "testing"

func TestMatcherSingleBytes(t *testing.T) {
	m := New()
	for i := 0; i < 256; i++ {
		m.Insert([]byte{byte(i)}, uint16(i))
	}

	for i := 0; i < 256; i++ {
		id, length, ok := m.FindLongestMatch([]byte{byte(i), byte((i + 1) % 256)})
		if !ok {
			t.Fatalf("byte %d: expected a match", i)
		}
		if length != 1 {
			t.Fatalf("byte %d: expected length 1, got %d", i, length)
		}
		if id != uint16(i) {
			t.Fatalf("byte %d: expected id %d, got %d", i, i, id)
		}
	}
}

func TestMatcherPrefersLongestMatch(t *testing.T) {
	m := New()
	for i := 0; i < 256; i++ {
		m.Insert([]byte{byte(i)}, uint16(i))
	}
	m.Insert([]byte("ab"), 256)
	m.Insert([]byte("abc"), 257)

	id, length, ok := m.FindLongestMatch([]byte("abcd"))
	if !ok {
		t.Fatal("expected a match")
	}
	if id != 257 || length != 3 {
		t.Fatalf("expected longest match (257, 3), got (%d, %d)", id, length)
	}
}

func TestMatcherLongKeyOverEightBytes(t *testing.T) {
	m := New()
	for i := 0; i < 256; i++ {
		m.Insert([]byte{byte(i)}, uint16(i))
	}

	long := []byte("identifier_001")
	m.Insert(long, 300)

	id, length, ok := m.FindLongestMatch(append(append([]byte{}, long...), "_suffix"...))
	if !ok {
		t.Fatal("expected a match")
	}
	if id != 300 || length != len(long) {
		t.Fatalf("expected (300, %d), got (%d, %d)", len(long), id, length)
	}
}

func TestMatcherDistinguishesLongKeysSharingPrefix(t *testing.T) {
	m := New()
	for i := 0; i < 256; i++ {
		m.Insert([]byte{byte(i)}, uint16(i))
	}

	m.Insert([]byte("user_00000001"), 300)
	m.Insert([]byte("user_00000002"), 301)
	m.Insert([]byte("user_0000000"), 302)

	id, length, ok := m.FindLongestMatch([]byte("user_00000002rest"))
	if !ok || id != 301 || length != len("user_00000002") {
		t.Fatalf("expected (301, %d), got (%d, %d, %v)", len("user_00000002"), id, length, ok)
	}
}

func TestMatcherNoMatchOnEmptyInput(t *testing.T) {
	m := New()
	_, _, ok := m.FindLongestMatch(nil)
	if ok {
		t.Fatal("expected no match on empty input")
	}
}
