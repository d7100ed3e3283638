package onpair

import "testing"

func TestDictionaryCompletenessSingleByteTokens(t *testing.T) {
	c := NewCompressor()
	c.CompressStrings([]string{"x"})

	boundaries := c.TokenBoundaries()
	dict := c.Dictionary()
	for i := 0; i < 256; i++ {
		if boundaries[i+1]-boundaries[i] != 1 {
			t.Fatalf("token %d: length %d, want 1", i, boundaries[i+1]-boundaries[i])
		}
		if dict[boundaries[i]] != byte(i) {
			t.Fatalf("token %d: byte %d, want %d", i, dict[boundaries[i]], i)
		}
	}
}

func TestMonotoneBoundaries(t *testing.T) {
	c := NewCompressor()
	c.CompressStrings(sampleStrings())

	boundaries := c.TokenBoundaries()
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] < boundaries[i-1] {
			t.Fatalf("token boundary %d (%d) < boundary %d (%d)", i, boundaries[i], i-1, boundaries[i-1])
		}
	}

	strBoundaries := c.StringBoundaries()
	for i := 1; i < len(strBoundaries); i++ {
		if strBoundaries[i] < strBoundaries[i-1] {
			t.Fatalf("string boundary %d (%d) < boundary %d (%d)", i, strBoundaries[i], i-1, strBoundaries[i-1])
		}
	}
}

func TestTokenIDBounds(t *testing.T) {
	c := NewCompressor()
	c.CompressStrings(sampleStrings())

	boundaries := c.TokenBoundaries()
	if len(boundaries) < 257 || len(boundaries) > 65537 {
		t.Fatalf("token_boundaries.len() = %d, want in [257, 65537]", len(boundaries))
	}
	for _, tokenID := range c.CompressedData() {
		if int(tokenID) >= 65536 {
			t.Fatalf("token id %d >= 65536", tokenID)
		}
	}
}

func TestScenarioEmptyCollection(t *testing.T) {
	c := NewCompressor()
	c.CompressStrings(nil)

	if got := c.Rows(); got != 0 {
		t.Fatalf("Rows() = %d, want 0 for an empty collection", got)
	}
	if got := len(c.CompressedData()); got != 0 {
		t.Fatalf("len(CompressedData()) = %d, want 0 for an empty collection", got)
	}
	buffer := make([]byte, 16)
	if n := c.DecompressAll(buffer); n != 0 {
		t.Fatalf("DecompressAll wrote %d bytes, want 0", n)
	}
}

func TestScenarioEmptyAndNonEmptyStrings(t *testing.T) {
	c := NewCompressor()
	c.CompressStrings([]string{"", "a", ""})

	buffer := make([]byte, 32)
	if n := c.DecompressString(0, buffer); n != 0 {
		t.Fatalf("row 0: got %d bytes, want 0", n)
	}
	if n := c.DecompressString(1, buffer); n != 1 || buffer[0] != 'a' {
		t.Fatalf("row 1: got %d bytes %q, want 1 byte 'a'", n, buffer[:n])
	}
	if n := c.DecompressString(2, buffer); n != 0 {
		t.Fatalf("row 2: got %d bytes, want 0", n)
	}
}

func TestScenarioRepeatedIdentifierCompressesTight(t *testing.T) {
	strings := make([]string, 10)
	for i := range strings {
		strings[i] = "user_000001"
	}
	c := NewCompressor()
	c.CompressStrings(strings)

	boundaries := c.StringBoundaries()
	for i := 0; i < len(strings); i++ {
		tokenCount := boundaries[i+1] - boundaries[i]
		if tokenCount > 2 {
			t.Fatalf("row %d: %d tokens, want <= 2 for a repeated 11-byte string", i, tokenCount)
		}
	}
}

func TestScenarioLongRunSplitsAtSixteenBytesVariantB(t *testing.T) {
	strings := []string{"aaaaaaaaaaaaaaaaaa"} // 18 'a's
	c, err := NewCompressor16(WithThreshold(2))
	if err != nil {
		t.Fatalf("NewCompressor16: %v", err)
	}
	c.CompressStrings(strings)

	boundaries := c.StringBoundaries()
	tokenCount := boundaries[1] - boundaries[0]
	if tokenCount > 2 {
		t.Fatalf("got %d tokens for an 18-byte run, want <= 2", tokenCount)
	}

	tb := c.TokenBoundaries()
	for _, tokenID := range c.CompressedData() {
		length := tb[tokenID+1] - tb[tokenID]
		if length > maxTokenLength16 {
			t.Fatalf("token %d has length %d, exceeds %d", tokenID, length, maxTokenLength16)
		}
	}
}

func TestScenarioSharedEightBytePrefixCoexist(t *testing.T) {
	strings := make([]string, 0, 40)
	for i := 0; i < 20; i++ {
		strings = append(strings, "abcdefghijkl", "abcdefghxyz")
	}
	c := NewCompressor(WithThreshold(2))
	c.CompressStrings(strings)

	buffer := make([]byte, 64)
	for i, want := range strings {
		n := c.DecompressString(i, buffer)
		if got := string(buffer[:n]); got != want {
			t.Fatalf("row %d: got %q, want %q", i, got, want)
		}
	}
}

func TestCoverageEveryPositionMatchable(t *testing.T) {
	data, endPositions := flattenStrings(sampleStrings())
	c := NewCompressor()
	c.CompressBytes(data, endPositions)

	for pos := 0; pos < len(data); pos++ {
		padded := append(append([]byte{}, data[pos:]...), make([]byte, 8)...)
		if _, _, ok := findAny(c, padded); !ok {
			t.Fatalf("position %d: no match found, coverage invariant violated", pos)
		}
	}
}

// findAny re-derives a match the same way the parser does, exercised
// only to check the coverage invariant independent of row boundaries.
func findAny(c *Compressor, data []byte) (uint16, int, bool) {
	return c.matcher.FindLongestMatch(data)
}
