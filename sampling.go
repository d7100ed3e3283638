package onpair

import (
	"bytes"
	"sort"
)

// shuffledRowOrder returns a deterministically shuffled permutation of row
// indices [0, numRows), used so that the byte-bounded or template-based
// sampling below draws from across the whole corpus rather than just its
// prefix.
func shuffledRowOrder(numRows int, seed uint64) []int {
	order := make([]int, numRows)
	for i := range order {
		order[i] = i
	}
	newRNGSource(seed).shuffle(order)
	return order
}

// selectTrainingRows picks which rows the learner walks, applying the
// configured sampling strategy only once the corpus exceeds the sample
// byte budget. It returns the chosen row indices (in walk order) and the
// total bytes they span.
func selectTrainingRows(data []byte, endPositions []int, shuffled []int, cfg Config) ([]int, int) {
	if len(data) <= cfg.TrainingSampleBytes {
		return shuffled, len(data)
	}
	if cfg.TemplateStratified {
		return stratifiedSampleByTemplate(data, endPositions, shuffled, cfg.TrainingSampleBytes, cfg.TemplateMaxClusters)
	}
	return sampleByBytes(shuffled, endPositions, cfg.TrainingSampleBytes)
}

// sampleByBytes walks shuffled rows in order until the byte budget is
// exhausted, returning the prefix of shuffled that was consumed.
func sampleByBytes(shuffled []int, endPositions []int, limit int) ([]int, int) {
	if limit <= 0 || len(shuffled) == 0 {
		return shuffled, 0
	}
	total := 0
	for i, idx := range shuffled {
		total += endPositions[idx+1] - endPositions[idx]
		if total >= limit {
			return shuffled[:i+1], total
		}
	}
	return shuffled, total
}

// stratifiedSampleByTemplate groups rows by their structural template key
// (see templateKey) and draws from each cluster a quota proportional to
// its row count, sized so the total roughly fills the byte budget, so a
// dominant row shape cannot crowd out rarer ones within the sample budget.
func stratifiedSampleByTemplate(data []byte, endPositions []int, shuffled []int, byteLimit, maxClusters int) ([]int, int) {
	if byteLimit <= 0 || len(shuffled) == 0 {
		return shuffled, 0
	}

	groups := make(map[string][]int, 256)
	order := make([]string, 0, 256)
	totalBytes := 0

	for _, idx := range shuffled {
		start, end := endPositions[idx], endPositions[idx+1]
		totalBytes += end - start
		key := templateKey(data[start:end], defaultTemplateTokens)

		if _, exists := groups[key]; !exists {
			if maxClusters > 0 && len(groups) >= maxClusters {
				key = templateOtherClusterKey
				if _, hasOther := groups[key]; !hasOther {
					groups[key] = nil
					order = append(order, key)
				}
			} else {
				groups[key] = nil
				order = append(order, key)
			}
		}
		groups[key] = append(groups[key], idx)
	}

	if len(order) == 0 {
		return sampleByBytes(shuffled, endPositions, byteLimit)
	}

	totalRows := len(shuffled)
	avgLen := float64(totalBytes) / float64(totalRows)
	targetRows := int(float64(byteLimit) / avgLen)
	if targetRows < 1 {
		targetRows = 1
	}
	if targetRows > totalRows {
		targetRows = totalRows
	}

	type quota struct {
		key       string
		n         int
		remainder float64
	}
	quotas := make([]quota, 0, len(order))
	allocated := 0
	for _, key := range order {
		count := len(groups[key])
		exact := float64(count) * float64(targetRows) / float64(totalRows)
		n := int(exact)
		quotas = append(quotas, quota{key: key, n: n, remainder: exact - float64(n)})
		allocated += n
	}
	if allocated < targetRows {
		sort.SliceStable(quotas, func(i, j int) bool {
			return quotas[i].remainder > quotas[j].remainder
		})
		remaining := targetRows - allocated
		for i := 0; remaining > 0; i++ {
			quotas[i%len(quotas)].n++
			remaining--
		}
	}

	positions := make(map[string]int, len(quotas))
	sampled := make([]int, 0, targetRows)
	sampledBytes := 0

	for _, q := range quotas {
		group := groups[q.key]
		n := q.n
		if n > len(group) {
			n = len(group)
		}
		if n <= 0 {
			continue
		}
		for i := 0; i < n; i++ {
			idx := group[i]
			sampled = append(sampled, idx)
			sampledBytes += endPositions[idx+1] - endPositions[idx]
		}
		positions[q.key] = n
		if sampledBytes >= byteLimit {
			return sampled, sampledBytes
		}
	}

	// Round-robin top-up: quotas can undershoot the byte budget when row
	// lengths vary a lot within a cluster.
	orderedKeys := make([]string, 0, len(quotas))
	for _, q := range quotas {
		orderedKeys = append(orderedKeys, q.key)
	}
	for sampledBytes < byteLimit {
		progressed := false
		for _, key := range orderedKeys {
			group := groups[key]
			pos := positions[key]
			if pos >= len(group) {
				continue
			}
			idx := group[pos]
			positions[key] = pos + 1
			sampled = append(sampled, idx)
			sampledBytes += endPositions[idx+1] - endPositions[idx]
			progressed = true
			if sampledBytes >= byteLimit {
				break
			}
		}
		if !progressed {
			break
		}
	}

	if len(sampled) == 0 {
		return sampleByBytes(shuffled, endPositions, byteLimit)
	}
	return sampled, sampledBytes
}

// templateKey reduces a row to a structural signature: whitespace fields,
// each normalized to a placeholder when it looks like a known shape
// (IPv4, UUID, hex, numeric), case-folded otherwise, capped at maxTokens
// fields. Rows with the same key are considered the same "kind" of row
// for stratified sampling purposes.
func templateKey(line []byte, maxTokens int) string {
	if len(line) == 0 {
		return ""
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	if maxTokens > 0 && len(fields) > maxTokens {
		fields = fields[:maxTokens]
	}

	key := make([]byte, 0, len(line))
	for i, field := range fields {
		if i > 0 {
			key = append(key, ' ')
		}
		key = appendNormalizedField(key, field)
	}
	return string(key)
}

func appendNormalizedField(dst, token []byte) []byte {
	trimmed := trimFieldPunct(token)
	if len(trimmed) == 0 {
		return append(dst, "<*>"...)
	}
	if eq := bytes.IndexByte(trimmed, '='); eq > 0 && eq < len(trimmed)-1 {
		for _, b := range trimmed[:eq+1] {
			dst = append(dst, toLowerASCII(b))
		}
		return appendNormalizedValue(dst, trimmed[eq+1:])
	}
	return appendNormalizedValue(dst, trimmed)
}

func appendNormalizedValue(dst, token []byte) []byte {
	if len(token) == 0 {
		return append(dst, "<*>"...)
	}
	switch {
	case looksIPv4(token):
		return append(dst, "<IP>"...)
	case looksUUID(token):
		return append(dst, "<UUID>"...)
	case looksHex(token):
		return append(dst, "<HEX>"...)
	case looksNumberLike(token):
		return append(dst, "<NUM>"...)
	}

	limit := len(token)
	if limit > 32 {
		limit = 32
	}
	for _, b := range token[:limit] {
		dst = append(dst, toLowerASCII(b))
	}
	return dst
}

func trimFieldPunct(token []byte) []byte {
	start, end := 0, len(token)
	for start < end && isTrimPunct(token[start]) {
		start++
	}
	for end > start && isTrimPunct(token[end-1]) {
		end--
	}
	return token[start:end]
}

func isTrimPunct(b byte) bool {
	switch b {
	case '[', ']', '(', ')', '{', '}', '<', '>', ',', ';', ':', '\'', '"':
		return true
	default:
		return false
	}
}

func toLowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func looksNumberLike(token []byte) bool {
	digits := 0
	for _, b := range token {
		if b >= '0' && b <= '9' {
			digits++
			continue
		}
		switch b {
		case '.', ',', '-', '_', ':', '/', '+':
			continue
		default:
			return false
		}
	}
	if digits == 0 {
		return false
	}
	return digits*2 >= len(token)
}

func looksHex(token []byte) bool {
	if len(token) < 8 {
		return false
	}
	hexCount := 0
	for _, b := range token {
		switch {
		case b >= '0' && b <= '9', b >= 'a' && b <= 'f', b >= 'A' && b <= 'F':
			hexCount++
		case b == '-':
		default:
			return false
		}
	}
	return hexCount >= 8
}

func looksUUID(token []byte) bool {
	if len(token) != 36 {
		return false
	}
	for i, b := range token {
		switch i {
		case 8, 13, 18, 23:
			if b != '-' {
				return false
			}
		default:
			if !((b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')) {
				return false
			}
		}
	}
	return true
}

func looksIPv4(token []byte) bool {
	parts := 0
	value := 0
	digits := 0
	for i, b := range token {
		if b >= '0' && b <= '9' {
			value = value*10 + int(b-'0')
			digits++
			if value > 255 {
				return false
			}
			continue
		}
		if b != '.' {
			return false
		}
		if digits == 0 {
			return false
		}
		parts++
		if parts > 3 {
			return false
		}
		value, digits = 0, 0
		if i == len(token)-1 {
			return false
		}
	}
	return parts == 3 && digits > 0
}
