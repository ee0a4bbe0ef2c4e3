// Package idgen provides string ID generation for repeche entities
// (memory items, interview questions, fetch attempts).
//
// The default is UUIDv7 (RFC 9562): time-sortable and globally unique, the
// hazyhaar ecosystem convention. NanoID exists for short-lived identifiers
// where a UUID is too verbose.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID returns a Generator producing base-36 IDs of the given length.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		out := make([]byte, length)
		for i := range out {
			out[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(out)
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID
// (e.g. "q_" for interview questions).
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}
