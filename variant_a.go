package onpair

import (
	"math"
	"unsafe"

	"github.com/tokendict/onpair/lpm"
)

// Compressor is the unconstrained-token-length variant: tokens may grow
// to any length the merge loop produces, up to the configured MaxTokenID
// vocabulary cap.
type Compressor struct {
	cfg Config

	matcher *lpm.Matcher

	dictionary      []byte
	tokenBoundaries []uint32

	compressedData   []uint16
	stringBoundaries []int
}

// NewCompressor creates an untrained Compressor. Training happens as
// part of every CompressBytes/CompressStrings call.
func NewCompressor(opts ...Option) *Compressor {
	cfg := newConfig(opts...)
	return &Compressor{
		cfg:              cfg,
		dictionary:       make([]byte, 0, 1<<20),
		tokenBoundaries:  make([]uint32, 0, 1<<16),
		compressedData:   make([]uint16, 0, cfg.capacityHint),
		stringBoundaries: make([]int, 0, cfg.capacityHint+1),
	}
}

// CompressStrings trains a fresh dictionary from strings and compresses
// them against it in one pass. It is a convenience wrapper around
// CompressBytes for callers not already holding flattened data.
func (c *Compressor) CompressStrings(strings []string) {
	data, endPositions := flattenStrings(strings)
	c.CompressBytes(data, endPositions)
}

// CompressBytes trains a fresh dictionary from the rows described by
// endPositions (a prefix-sum array, endPositions[0] == 0) and compresses
// them against it.
func (c *Compressor) CompressBytes(data []byte, endPositions []int) {
	c.train(data, endPositions)
	c.parse(data, endPositions)
}

// train runs the online BPE-style merge loop: walk a (possibly sampled)
// shuffled order of rows, count adjacent token-pair frequencies, and
// merge a pair into a new token as soon as its count reaches threshold.
func (c *Compressor) train(data []byte, endPositions []int) {
	c.matcher, c.dictionary, c.tokenBoundaries = trainMatcherA(data, endPositions, c.cfg)
}

// trainMatcherA runs the unconstrained-length merge loop independent of
// any particular Compressor instance — shared by Compressor.train and
// Model.Train, which keeps the trained matcher around for many later
// Encode calls instead of a single CompressBytes.
func trainMatcherA(data []byte, endPositions []int, cfg Config) (*lpm.Matcher, []byte, []uint32) {
	matcher := lpm.New()
	dictionary := make([]byte, 0, 1<<20)
	tokenBoundaries := make([]uint32, 0, 1<<16)
	tokenBoundaries = append(tokenBoundaries, 0)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		matcher.Insert(token, uint16(i))
		dictionary = append(dictionary, token...)
		tokenBoundaries = append(tokenBoundaries, uint32(len(dictionary)))
	}

	numRows := len(endPositions) - 1
	if numRows == 0 {
		return matcher, dictionary, tokenBoundaries
	}

	shuffled := shuffledRowOrder(numRows, 42)
	sampleIndices, sampleBytes := selectTrainingRows(data, endPositions, shuffled, cfg)

	threshold := cfg.Threshold
	if threshold == 0 {
		sampleMiB := float64(sampleBytes) / (1024.0 * 1024.0)
		threshold = uint16(math.Max(2.0, math.Log2(sampleMiB)))
	}

	dictionary, tokenBoundaries = mergeTokensA(matcher, data, endPositions, sampleIndices, threshold, cfg.MaxTokenID, dictionary, tokenBoundaries)
	return matcher, dictionary, tokenBoundaries
}

func mergeTokensA(matcher *lpm.Matcher, data []byte, endPositions []int, sampleIndices []int, threshold, limit uint16, dictionary []byte, tokenBoundaries []uint32) ([]byte, []uint32) {
	if len(sampleIndices) == 0 {
		return dictionary, tokenBoundaries
	}

	nextTokenID := uint16(singleByteTokens)
	frequency := make(map[uint32]uint16, 4096)

outer:
	for _, index := range sampleIndices {
		start := endPositions[index]
		end := endPositions[index+1]
		if start == end {
			continue
		}

		prevTokenID, prevLength, ok := matcher.FindLongestMatch(data[start:end])
		if !ok {
			continue
		}
		pos := start + prevLength

		for pos < end {
			currTokenID, currLength, ok := matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}

			pair := uint32(prevTokenID)<<16 | uint32(currTokenID)
			frequency[pair]++

			if frequency[pair] >= threshold {
				if nextTokenID > limit {
					break outer
				}
				merged := data[pos-prevLength : pos+currLength]
				matcher.Insert(merged, nextTokenID)
				dictionary = append(dictionary, merged...)
				tokenBoundaries = append(tokenBoundaries, uint32(len(dictionary)))

				delete(frequency, pair)
				prevTokenID = nextTokenID
				prevLength = len(merged)

				if nextTokenID == limit {
					break outer
				}
				nextTokenID++
			} else {
				prevTokenID = currTokenID
				prevLength = currLength
			}
			pos += currLength
		}
	}
	return dictionary, tokenBoundaries
}

// parse greedily tokenizes every row against the trained matcher,
// producing one token-ID run per row.
func (c *Compressor) parse(data []byte, endPositions []int) {
	c.compressedData, c.stringBoundaries = parseWithMatcher(c.matcher, data, endPositions)
}

// parseWithMatcher greedily tokenizes every row in data against matcher,
// independent of any particular Compressor instance — shared by
// Compressor.parse and Model.Encode, which reuses a trained matcher
// across many encode calls.
func parseWithMatcher(matcher *lpm.Matcher, data []byte, endPositions []int) ([]uint16, []int) {
	compressedData := make([]uint16, 0, len(data)/2)
	stringBoundaries := make([]int, 0, len(endPositions))
	stringBoundaries = append(stringBoundaries, 0)

	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		if start == end {
			stringBoundaries = append(stringBoundaries, len(compressedData))
			continue
		}

		pos := start
		for pos < end {
			tokenID, length, ok := matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}
			compressedData = append(compressedData, tokenID)
			pos += length
		}
		stringBoundaries = append(stringBoundaries, len(compressedData))
	}
	return compressedData, stringBoundaries
}

// DecompressString decodes row index into buffer using the fast, unsafe
// fixed-stride copy path and returns the number of bytes written.
//
// buffer must have at least fastCopyStride bytes of slack past the
// real decoded length of the row (i.e. len(buffer) >= decoded length +
// fastCopyStride), since every token's first 16 bytes are always copied
// regardless of the token's true length.
func (c *Compressor) DecompressString(index int, buffer []byte) int {
	start, end := c.stringBoundaries[index], c.stringBoundaries[index+1]
	return c.decodeRun(c.compressedData[start:end], buffer)
}

// DecompressAll decodes every row, concatenated, into buffer. Same
// padding requirement as DecompressString.
func (c *Compressor) DecompressAll(buffer []byte) int {
	if len(c.dictionary) == 0 {
		return 0
	}
	return c.decodeRun(c.compressedData, buffer)
}

func (c *Compressor) decodeRun(tokens []uint16, buffer []byte) int {
	if len(c.dictionary) == 0 || len(tokens) == 0 {
		return 0
	}

	dictPtr := unsafe.Pointer(&c.dictionary[0])
	boundaryPtr := unsafe.Pointer(&c.tokenBoundaries[0])
	size := 0

	for _, tokenID := range tokens {
		if int(tokenID)+1 >= len(c.tokenBoundaries) {
			continue
		}

		dictStart := *(*uint32)(unsafe.Pointer(uintptr(boundaryPtr) + uintptr(tokenID)*4))
		dictEnd := *(*uint32)(unsafe.Pointer(uintptr(boundaryPtr) + uintptr(tokenID+1)*4))
		length := int(dictEnd - dictStart)
		if length < 0 || dictEnd > uint32(len(c.dictionary)) {
			continue
		}

		src := unsafe.Pointer(uintptr(dictPtr) + uintptr(dictStart))
		dst := unsafe.Pointer(&buffer[size])
		*(*[fastCopyStride]byte)(dst) = *(*[fastCopyStride]byte)(src)

		if length > fastCopyStride {
			src = unsafe.Pointer(uintptr(src) + fastCopyStride)
			dst = unsafe.Pointer(uintptr(dst) + fastCopyStride)
			remaining := length - fastCopyStride
			copy((*[1 << 30]byte)(dst)[:remaining:remaining], (*[1 << 30]byte)(src)[:remaining:remaining])
		}
		size += length
	}
	return size
}

// Rows reports how many rows were compressed.
func (c *Compressor) Rows() int {
	if len(c.stringBoundaries) == 0 {
		return 0
	}
	return len(c.stringBoundaries) - 1
}

// DecodedLen returns the exact decoded byte length of row index, without
// decoding it, so a checked caller can size an exact buffer.
func (c *Compressor) DecodedLen(index int) int {
	start, end := c.stringBoundaries[index], c.stringBoundaries[index+1]
	size := 0
	for _, tokenID := range c.compressedData[start:end] {
		if int(tokenID)+1 >= len(c.tokenBoundaries) {
			continue
		}
		size += int(c.tokenBoundaries[tokenID+1] - c.tokenBoundaries[tokenID])
	}
	return size
}

// AppendRow decodes row index and appends it to dst, growing dst as
// needed, returning the extended slice. Unlike DecompressString it never
// requires padding: it allocates its own scratch buffer internally.
func (c *Compressor) AppendRow(dst []byte, index int) []byte {
	n := c.DecodedLen(index)
	scratch := make([]byte, n+fastCopyStride)
	written := c.DecompressString(index, scratch)
	return append(dst, scratch[:written]...)
}

// AppendAll decodes every row in order and appends each to dst using
// AppendRow, returning the extended slice.
func (c *Compressor) AppendAll(dst []byte) []byte {
	for i := 0; i < c.Rows(); i++ {
		dst = c.AppendRow(dst, i)
	}
	return dst
}

// SpaceUsed reports the approximate total bytes used by the compressed
// representation and dictionary (not counting Go slice/map overhead).
func (c *Compressor) SpaceUsed() int {
	return len(c.compressedData)*2 + len(c.dictionary) + len(c.tokenBoundaries)*4
}

// ShrinkToFit reallocates internal slices to their exact current length,
// releasing any excess training-time capacity.
func (c *Compressor) ShrinkToFit() {
	c.compressedData = append([]uint16(nil), c.compressedData...)
	c.stringBoundaries = append([]int(nil), c.stringBoundaries...)
	c.dictionary = append([]byte(nil), c.dictionary...)
	c.tokenBoundaries = append([]uint32(nil), c.tokenBoundaries...)
}

// Dictionary returns the raw concatenated token bytes, for inspection.
func (c *Compressor) Dictionary() []byte { return c.dictionary }

// TokenBoundaries returns the per-token end offsets into Dictionary.
func (c *Compressor) TokenBoundaries() []uint32 { return c.tokenBoundaries }

// CompressedData returns the flat token-ID stream across all rows.
func (c *Compressor) CompressedData() []uint16 { return c.compressedData }

// StringBoundaries returns the per-row end offsets into CompressedData.
func (c *Compressor) StringBoundaries() []int { return c.stringBoundaries }
