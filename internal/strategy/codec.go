// CLAUDE:SUMMARY Strict encode/decode of Records to the memory capability's opaque solution blob.
package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RecordTag marks every persisted record so recall can coarse-filter.
const RecordTag = "fetch_strategy"

// EncodeRecord serializes a record into the opaque solution blob stored in
// the memory capability, plus its tag list [domain, strategy, RecordTag,
// user tags...].
func EncodeRecord(r *Record) (solution string, tags []string, err error) {
	if !r.Valid() {
		return "", nil, fmt.Errorf("record %s%s has no observations", r.Domain, r.PathPattern)
	}
	blob, err := json.Marshal(r)
	if err != nil {
		return "", nil, fmt.Errorf("encode record: %w", err)
	}
	tags = append([]string{r.Domain, r.Strategy, RecordTag}, r.Tags...)
	return string(blob), tags, nil
}

// DecodeRecord parses a memory item payload back into a Record.
// Malformed or foreign payloads yield an explicit error, never a partial
// record; callers drop undecodable items instead of recovering from panics.
func DecodeRecord(blob []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	r.Domain = strings.ToLower(r.Domain)
	if r.Domain == "" || r.Strategy == "" {
		return nil, fmt.Errorf("decode record: missing domain or strategy")
	}
	if r.SuccessCount+r.FailureCount <= 0 {
		return nil, fmt.Errorf("decode record: zero observations for %s%s", r.Domain, r.PathPattern)
	}
	if r.SuccessRate < 0 || r.SuccessRate > 1 {
		return nil, fmt.Errorf("decode record: success_rate %v out of range", r.SuccessRate)
	}
	return &r, nil
}

// Problem renders the human-readable problem text a record is filed under in
// the memory capability.
func Problem(domain, pathPattern string) string {
	return fmt.Sprintf("fetch strategy for %s%s", domain, pathPattern)
}
