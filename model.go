package onpair

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tokendict/onpair/lpm"
)

// Model is a reusable, unconstrained-length (Variant A) dictionary: one
// Train call builds the vocabulary, after which any number of Encode
// calls can compress further batches of the same kind of data against
// it without retraining. This suits a long-lived service compressing
// successive batches of similarly-shaped rows.
type Model struct {
	cfg             Config
	matcher         *lpm.Matcher
	dictionary      []byte
	tokenBoundaries []uint32
}

// NewModel creates an untrained Model with the given options.
func NewModel(opts ...Option) *Model {
	return &Model{cfg: newConfig(opts...)}
}

// TrainModel creates a Model and trains it from strings in one step.
func TrainModel(strings []string, opts ...Option) (*Model, error) {
	m := NewModel(opts...)
	if err := m.Train(strings); err != nil {
		return nil, err
	}
	return m, nil
}

// Train builds the dictionary and matcher used by subsequent Encode
// calls. Calling Train again replaces the previously trained vocabulary.
func (m *Model) Train(strings []string) error {
	if len(strings) == 0 {
		return ErrNoTrainingData
	}
	data, endPositions := flattenStrings(strings)
	m.matcher, m.dictionary, m.tokenBoundaries = trainMatcherA(data, endPositions, m.cfg)
	return nil
}

// Trained reports whether the model has a vocabulary ready for Encode.
func (m *Model) Trained() bool {
	return m.matcher != nil
}

// Encode compresses strings against the previously trained vocabulary,
// returning an Archive holding both the compressed rows and a copy of
// the dictionary they were compressed against.
func (m *Model) Encode(strings []string) (*Archive, error) {
	if !m.Trained() {
		return nil, ErrUntrainedModel
	}
	data, endPositions := flattenStrings(strings)
	compressedData, stringBoundaries := parseWithMatcher(m.matcher, data, endPositions)

	return &Archive{
		CompressedData:   compressedData,
		StringBoundaries: stringBoundaries,
		Dictionary:       append([]byte(nil), m.dictionary...),
		TokenBoundaries:  append([]uint32(nil), m.tokenBoundaries...),
	}, nil
}

// archiveMagic identifies the Archive wire format; archiveVersion allows
// the format to evolve without spec.md mandating any particular layout
// (persistence is this module's own convenience, not a spec requirement).
const (
	archiveMagic   = uint32(0x4f504152) // "OPAR"
	archiveVersion = uint8(1)
)

// Archive is the result of one Model.Encode call: a self-contained,
// serializable compressed batch plus the dictionary it was compressed
// against, so it can be decoded in a separate process without retraining.
type Archive struct {
	CompressedData   []uint16
	StringBoundaries []int
	Dictionary       []byte
	TokenBoundaries  []uint32
}

// Rows reports how many rows this archive holds.
func (a *Archive) Rows() int {
	if len(a.StringBoundaries) == 0 {
		return 0
	}
	return len(a.StringBoundaries) - 1
}

// DecodedLen returns the exact decoded byte length of row index.
func (a *Archive) DecodedLen(index int) int {
	start, end := a.StringBoundaries[index], a.StringBoundaries[index+1]
	size := 0
	for _, tokenID := range a.CompressedData[start:end] {
		if int(tokenID)+1 >= len(a.TokenBoundaries) {
			continue
		}
		size += int(a.TokenBoundaries[tokenID+1] - a.TokenBoundaries[tokenID])
	}
	return size
}

// AppendRow decodes row index and appends it to dst, returning the
// extended slice. This is the checked, allocation-based decode path: it
// never requires the caller to provide fast-copy padding.
func (a *Archive) AppendRow(dst []byte, index int) []byte {
	start, end := a.StringBoundaries[index], a.StringBoundaries[index+1]
	for _, tokenID := range a.CompressedData[start:end] {
		if int(tokenID)+1 >= len(a.TokenBoundaries) {
			continue
		}
		tokStart, tokEnd := a.TokenBoundaries[tokenID], a.TokenBoundaries[tokenID+1]
		if tokEnd > uint32(len(a.Dictionary)) || tokStart > tokEnd {
			continue
		}
		dst = append(dst, a.Dictionary[tokStart:tokEnd]...)
	}
	return dst
}

// AppendAll decodes every row in order and appends each to dst.
func (a *Archive) AppendAll(dst []byte) []byte {
	for i := 0; i < a.Rows(); i++ {
		dst = a.AppendRow(dst, i)
	}
	return dst
}

// WriteTo serializes the archive: a fixed header (magic, version, four
// section lengths) followed by each section's raw bytes, in the order
// CompressedData, StringBoundaries, Dictionary, TokenBoundaries.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	var header [4 + 1 + 4*4]byte
	binary.LittleEndian.PutUint32(header[0:4], archiveMagic)
	header[4] = archiveVersion
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(a.CompressedData)))
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(a.StringBoundaries)))
	binary.LittleEndian.PutUint32(header[13:17], uint32(len(a.Dictionary)))
	binary.LittleEndian.PutUint32(header[17:21], uint32(len(a.TokenBoundaries)))

	n, err := w.Write(header[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("onpair: writing archive header: %w", err)
	}

	for _, v := range a.CompressedData {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return total, fmt.Errorf("onpair: writing compressed data: %w", err)
		}
		total += 2
	}
	for _, v := range a.StringBoundaries {
		if err := binary.Write(w, binary.LittleEndian, uint32(v)); err != nil {
			return total, fmt.Errorf("onpair: writing string boundaries: %w", err)
		}
		total += 4
	}
	wn, err := w.Write(a.Dictionary)
	total += int64(wn)
	if err != nil {
		return total, fmt.Errorf("onpair: writing dictionary: %w", err)
	}
	for _, v := range a.TokenBoundaries {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return total, fmt.Errorf("onpair: writing token boundaries: %w", err)
		}
		total += 4
	}
	return total, nil
}

// ReadFrom deserializes an archive previously written by WriteTo,
// replacing the receiver's contents.
func (a *Archive) ReadFrom(r io.Reader) (int64, error) {
	var header [4 + 1 + 4*4]byte
	n, err := io.ReadFull(r, header[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("onpair: reading archive header: %w", err)
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != archiveMagic {
		return total, fmt.Errorf("onpair: bad archive magic %#x", magic)
	}
	if version := header[4]; version != archiveVersion {
		return total, fmt.Errorf("onpair: unsupported archive version %d", version)
	}

	nCompressed := binary.LittleEndian.Uint32(header[5:9])
	nStringBoundaries := binary.LittleEndian.Uint32(header[9:13])
	nDictionary := binary.LittleEndian.Uint32(header[13:17])
	nTokenBoundaries := binary.LittleEndian.Uint32(header[17:21])

	a.CompressedData = make([]uint16, nCompressed)
	for i := range a.CompressedData {
		if err := binary.Read(r, binary.LittleEndian, &a.CompressedData[i]); err != nil {
			return total, fmt.Errorf("onpair: reading compressed data at index %d: %w", i, err)
		}
		total += 2
	}

	a.StringBoundaries = make([]int, nStringBoundaries)
	for i := range a.StringBoundaries {
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return total, fmt.Errorf("onpair: reading string boundary at index %d: %w", i, err)
		}
		a.StringBoundaries[i] = int(v)
		total += 4
	}

	a.Dictionary = make([]byte, nDictionary)
	rn, err := io.ReadFull(r, a.Dictionary)
	total += int64(rn)
	if err != nil {
		return total, fmt.Errorf("onpair: reading dictionary: %w", err)
	}

	a.TokenBoundaries = make([]uint32, nTokenBoundaries)
	for i := range a.TokenBoundaries {
		if err := binary.Read(r, binary.LittleEndian, &a.TokenBoundaries[i]); err != nil {
			return total, fmt.Errorf("onpair: reading token boundary at index %d: %w", i, err)
		}
		total += 4
	}
	return total, nil
}
