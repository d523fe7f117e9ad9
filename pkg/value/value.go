// Package value defines the tagged 64-bit encoding shared by every SNEK
// runtime value (numbers, booleans, nil, tuple pointers) and the predicate
// functions the code generator emits as inline runtime checks.
package value

import "math"

// ----------------------------------------------------------------------------
// Tag scheme

// This section mirrors the fixed encoding every other package in this module
// assumes: the low two bits of a 64-bit word distinguish numbers from the
// "pointer-like" values (booleans, nil, tuples), and among the latter the
// third bit distinguishes the two booleans from nil/tuples.

const (
	// False is the encoded representation of the boolean value false (0b011).
	False int64 = 3
	// True is the encoded representation of the boolean value true (0b111).
	True int64 = 7
	// Nil is the encoded representation of the empty/absent value (0b001).
	Nil int64 = 1
)

// MaxNumber and MinNumber bound the signed integers representable once
// shifted left by one bit to make room for the number tag (bit 0 = 0).
const (
	MaxNumber int64 = math.MaxInt64 >> 1
	MinNumber int64 = math.MinInt64 >> 1
)

// Encode returns the tagged encoding of the literal n, shifting it left by
// one bit. ok is false if n falls outside the representable range, i.e. the
// shift would overflow a 64-bit signed integer.
func Encode(n int64) (encoded int64, ok bool) {
	if n > MaxNumber || n < MinNumber {
		return 0, false
	}
	return n << 1, true
}

// IsNumber reports whether v is tagged as a number (bit 0 clear).
func IsNumber(v int64) bool { return v&1 == 0 }

// IsBool reports whether v is exactly True or False. This is the strict
// predicate used to classify values produced by the generator (see the
// exactly-one-holds invariant in the test suite); the "isbool" SNEK
// operator itself lowers to a looser runtime check (any odd-tagged value)
// that pkg/codegen reproduces deliberately — see its doc comment.
func IsBool(v int64) bool { return v == True || v == False }

// IsTuple reports whether v is a tagged tuple pointer (bits 1..0 = 01, and
// not the reserved Nil encoding).
func IsTuple(v int64) bool { return v&3 == 1 && v != Nil }
