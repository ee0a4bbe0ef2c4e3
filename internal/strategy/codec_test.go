package strategy

import (
	"strings"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	// WHAT: a record survives the encode/decode round trip field by field.
	// WHY: the memory capability treats the blob as opaque, so this codec
	// is the only schema guarantee.
	rec := NewRecord("example.com", "/report*.pdf", "jina", 420)
	rec.Headers = map[string]string{"Accept": "application/pdf"}
	rec.UserAgent = "repeche/1.0"
	rec.HumanProvided = true
	rec.HumanNotes = "use the reader proxy"
	rec.Tags = []string{"pdf"}

	solution, tags, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if tags[0] != "example.com" || tags[1] != "jina" || tags[2] != RecordTag {
		t.Errorf("tags = %v", tags)
	}

	got, err := DecodeRecord([]byte(solution))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Domain != rec.Domain || got.PathPattern != rec.PathPattern ||
		got.Strategy != rec.Strategy || got.SuccessCount != rec.SuccessCount ||
		got.SuccessRate != rec.SuccessRate || got.AvgTimingMs != rec.AvgTimingMs ||
		got.UserAgent != rec.UserAgent || !got.HumanProvided ||
		got.HumanNotes != rec.HumanNotes {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
	if got.Headers["Accept"] != "application/pdf" {
		t.Errorf("headers = %v", got.Headers)
	}
}

func TestDecodeRecord_RejectsForeignPayloads(t *testing.T) {
	// WHAT: malformed and foreign blobs yield explicit errors.
	// WHY: recall over a shared memory store returns noise; a strict
	// decode turns defensive parsing into visible branches.
	cases := []struct{ name, blob string }{
		{"not json", "hello world"},
		{"missing identity", `{"success_count":1}`},
		{"zero observations", `{"domain":"x.test","strategy_name":"direct"}`},
		{"rate out of range", `{"domain":"x.test","strategy_name":"direct","success_count":1,"success_rate":3.5}`},
	}
	for _, c := range cases {
		if _, err := DecodeRecord([]byte(c.blob)); err == nil {
			t.Errorf("%s: decode accepted %q", c.name, c.blob)
		}
	}
}

func TestEncodeRecord_RejectsUnobserved(t *testing.T) {
	// WHAT: a record with zero attempts cannot be persisted.
	// WHY: it would decode as invalid and poison future recalls.
	_, _, err := EncodeRecord(&Record{Domain: "x.test", Strategy: "direct"})
	if err == nil || !strings.Contains(err.Error(), "no observations") {
		t.Errorf("err = %v", err)
	}
}
