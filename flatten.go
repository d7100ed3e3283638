package onpair

// fastCopyStride is the fixed number of bytes the decode path copies per
// token regardless of the token's real length. Destination buffers must
// be sized with this much trailing padding beyond the actual decoded
// length (see Compressor.DecompressString / Compressor16.DecompressString).
const fastCopyStride = 16

// flattenStrings concatenates strings into one buffer and returns the
// prefix-sum end offsets of each string within it (endPositions[0] == 0).
func flattenStrings(strings []string) ([]byte, []int) {
	total := 0
	for _, s := range strings {
		total += len(s)
	}

	data := make([]byte, 0, total)
	endPositions := make([]int, 0, len(strings)+1)
	endPositions = append(endPositions, 0)

	for _, s := range strings {
		data = append(data, s...)
		endPositions = append(endPositions, len(data))
	}
	return data, endPositions
}
