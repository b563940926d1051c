package checkout

import (
	"fmt"
	"strconv"
)

// The payment processor caps each metadata value; one oversized value voids
// the whole session, so the encoder enforces the cap up front.
const maxMetadataValueLen = 500

// putChunked stores a bounded array as indexed metadata keys instead of one
// JSON blob: "<plural>_count" holds the length and each element lands under
// "<singular>_<i>". This trades key count for per-key size safety and is how
// unbounded arrays (flight segments today) survive the processor's value
// limit.
func putChunked(meta map[string]string, plural, singular string, items [][]byte) error {
	meta[plural+"_count"] = strconv.Itoa(len(items))
	for i, b := range items {
		if len(b) > maxMetadataValueLen {
			return fmt.Errorf("%s_%d: value is %d bytes, limit %d", singular, i, len(b), maxMetadataValueLen)
		}
		meta[fmt.Sprintf("%s_%d", singular, i)] = string(b)
	}
	return nil
}

// getChunked reverses putChunked. Missing count or element keys are
// reported, not skipped, so a truncated sidecar never decodes silently.
func getChunked(meta map[string]string, plural, singular string) ([][]byte, error) {
	raw, ok := meta[plural+"_count"]
	if !ok {
		return nil, fmt.Errorf("missing %s_count", plural)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad %s_count %q", plural, raw)
	}

	items := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%s_%d", singular, i)
		v, ok := meta[key]
		if !ok {
			return nil, fmt.Errorf("missing %s", key)
		}
		items = append(items, []byte(v))
	}
	return items, nil
}
