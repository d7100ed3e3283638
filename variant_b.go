package onpair

import (
	"unsafe"

	"github.com/tokendict/onpair/lpm"
)

// maxTokenLength16 is the hard per-token byte cap Compressor16 enforces,
// which lets its matcher's long-key suffixes fit in a single machine
// word and lets decode skip the fast-copy path's tail-copy branch
// entirely (every token fits within one fastCopyStride-sized copy).
const maxTokenLength16 = 16

// Compressor16 is the 16-byte-token-bound variant. Training finalizes
// into a read-only, perfect-hash-indexed matcher, trading a one-time
// Finalize cost for faster per-token lookups during parsing.
type Compressor16 struct {
	cfg Config

	static *lpm.StaticMatcher16

	dictionary      []byte
	tokenBoundaries []uint32

	compressedData   []uint16
	stringBoundaries []int
}

// NewCompressor16 creates an untrained Compressor16. Unlike Compressor,
// Compressor16 has no dynamic threshold fallback: callers must supply
// WithThreshold(t) with t > 1, or construction fails.
func NewCompressor16(opts ...Option) (*Compressor16, error) {
	cfg := newConfig(opts...)
	if cfg.Threshold <= 1 {
		return nil, ErrInvalidThreshold
	}
	return &Compressor16{
		cfg:              cfg,
		dictionary:       make([]byte, 0, 1<<20),
		tokenBoundaries:  make([]uint32, 0, 1<<16),
		compressedData:   make([]uint16, 0, cfg.capacityHint),
		stringBoundaries: make([]int, 0, cfg.capacityHint+1),
	}, nil
}

// CompressStrings trains a fresh dictionary from strings and compresses
// them against it in one pass.
func (c *Compressor16) CompressStrings(strings []string) {
	data, endPositions := flattenStrings(strings)
	c.CompressBytes(data, endPositions)
}

// CompressBytes trains a fresh 16-byte-bounded dictionary from the rows
// described by endPositions and compresses them against it.
func (c *Compressor16) CompressBytes(data []byte, endPositions []int) {
	c.dictionary = make([]byte, 0, 1<<20)
	c.tokenBoundaries = make([]uint32, 0, 1<<16)
	c.compressedData = make([]uint16, 0, c.cfg.capacityHint)
	c.stringBoundaries = make([]int, 0, c.cfg.capacityHint+1)

	dynamic := c.train(data, endPositions)
	c.static = dynamic.Finalize()
	c.parse(data, endPositions)
}

func (c *Compressor16) train(data []byte, endPositions []int) *lpm.Matcher16 {
	matcher := lpm.New16()
	c.tokenBoundaries = append(c.tokenBoundaries, 0)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		matcher.Insert(token, uint16(i))
		c.dictionary = append(c.dictionary, token...)
		c.tokenBoundaries = append(c.tokenBoundaries, uint32(len(c.dictionary)))
	}

	numRows := len(endPositions) - 1
	if numRows == 0 {
		return matcher
	}

	shuffled := shuffledRowOrder(numRows, 42)
	sampleIndices, _ := selectTrainingRows(data, endPositions, shuffled, c.cfg)

	c.mergeTokens(matcher, data, endPositions, sampleIndices, c.cfg.Threshold)
	return matcher
}

func (c *Compressor16) mergeTokens(matcher *lpm.Matcher16, data []byte, endPositions []int, sampleIndices []int, threshold uint16) {
	if len(sampleIndices) == 0 {
		return
	}

	nextTokenID := uint16(singleByteTokens)
	limit := c.cfg.MaxTokenID
	frequency := make(map[uint32]uint16, 4096)

outer:
	for _, index := range sampleIndices {
		start, end := endPositions[index], endPositions[index+1]
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

			merged := false
			if prevLength+currLength <= maxTokenLength16 {
				pair := uint32(prevTokenID)<<16 | uint32(currTokenID)
				frequency[pair]++

				if frequency[pair] >= threshold {
					if nextTokenID > limit {
						break outer
					}
					mergedToken := data[pos-prevLength : pos+currLength]
					if matcher.Insert(mergedToken, nextTokenID) {
						c.dictionary = append(c.dictionary, mergedToken...)
						c.tokenBoundaries = append(c.tokenBoundaries, uint32(len(c.dictionary)))

						delete(frequency, pair)
						prevTokenID = nextTokenID
						prevLength = len(mergedToken)
						merged = true

						if nextTokenID == limit {
							break outer
						}
						nextTokenID++
					}
				}
			}

			if !merged {
				prevTokenID = currTokenID
				prevLength = currLength
			}
			pos += currLength
		}
	}
}

func (c *Compressor16) parse(data []byte, endPositions []int) {
	c.stringBoundaries = append(c.stringBoundaries, 0)

	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		if start == end {
			c.stringBoundaries = append(c.stringBoundaries, len(c.compressedData))
			continue
		}

		pos := start
		for pos < end {
			tokenID, length, ok := c.static.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}
			c.compressedData = append(c.compressedData, tokenID)
			pos += length
		}
		c.stringBoundaries = append(c.stringBoundaries, len(c.compressedData))
	}
}

// DecompressString decodes row index into buffer via the fixed-stride
// unsafe copy path and returns the number of bytes written. Because
// every token is at most maxTokenLength16 bytes, buffer needs only
// fastCopyStride bytes of trailing padding past the row's real decoded
// length — there is never a tail-copy beyond the first stride.
func (c *Compressor16) DecompressString(index int, buffer []byte) int {
	start, end := c.stringBoundaries[index], c.stringBoundaries[index+1]
	return c.decodeRun(c.compressedData[start:end], buffer)
}

// DecompressAll decodes every row, concatenated, into buffer. Same
// padding requirement as DecompressString.
func (c *Compressor16) DecompressAll(buffer []byte) int {
	if len(c.dictionary) == 0 {
		return 0
	}
	return c.decodeRun(c.compressedData, buffer)
}

func (c *Compressor16) decodeRun(tokens []uint16, buffer []byte) int {
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
		if length < 0 || length > maxTokenLength16 || dictEnd > uint32(len(c.dictionary)) {
			continue
		}

		src := unsafe.Pointer(uintptr(dictPtr) + uintptr(dictStart))
		dst := unsafe.Pointer(&buffer[size])
		*(*[fastCopyStride]byte)(dst) = *(*[fastCopyStride]byte)(src)

		size += length
	}
	return size
}

// Rows reports how many rows were compressed.
func (c *Compressor16) Rows() int {
	if len(c.stringBoundaries) == 0 {
		return 0
	}
	return len(c.stringBoundaries) - 1
}

// DecodedLen returns the exact decoded byte length of row index.
func (c *Compressor16) DecodedLen(index int) int {
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
// needed, returning the extended slice.
func (c *Compressor16) AppendRow(dst []byte, index int) []byte {
	n := c.DecodedLen(index)
	scratch := make([]byte, n+fastCopyStride)
	written := c.DecompressString(index, scratch)
	return append(dst, scratch[:written]...)
}

// AppendAll decodes every row in order and appends each to dst.
func (c *Compressor16) AppendAll(dst []byte) []byte {
	for i := 0; i < c.Rows(); i++ {
		dst = c.AppendRow(dst, i)
	}
	return dst
}

// SpaceUsed reports the approximate total bytes used by the compressed
// representation and dictionary.
func (c *Compressor16) SpaceUsed() int {
	return len(c.compressedData)*2 + len(c.dictionary) + len(c.tokenBoundaries)*4
}

// ShrinkToFit reallocates internal slices to their exact current length.
func (c *Compressor16) ShrinkToFit() {
	c.compressedData = append([]uint16(nil), c.compressedData...)
	c.stringBoundaries = append([]int(nil), c.stringBoundaries...)
	c.dictionary = append([]byte(nil), c.dictionary...)
	c.tokenBoundaries = append([]uint32(nil), c.tokenBoundaries...)
}

// Dictionary returns the raw concatenated token bytes, for inspection.
func (c *Compressor16) Dictionary() []byte { return c.dictionary }

// TokenBoundaries returns the per-token end offsets into Dictionary.
func (c *Compressor16) TokenBoundaries() []uint32 { return c.tokenBoundaries }

// CompressedData returns the flat token-ID stream across all rows.
func (c *Compressor16) CompressedData() []uint16 { return c.compressedData }

// StringBoundaries returns the per-row end offsets into CompressedData.
func (c *Compressor16) StringBoundaries() []int { return c.stringBoundaries }
