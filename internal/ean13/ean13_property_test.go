package ean13

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func digitsToString(digits []int) string {
	var b strings.Builder
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

// TestCheckDigit_WeightedSum verifies the appended digit makes the weighted sum a multiple of 10.
func TestCheckDigit_WeightedSum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("weighted sum including check digit is divisible by 10", prop.ForAll(
		func(digits []int) bool {
			code := Complete(Canonical(digitsToString(digits)))
			sum := 0
			for i, d := range code.Digits() {
				if i%2 == 0 {
					sum += d
				} else {
					sum += 3 * d
				}
			}
			return sum%10 == 0 && len(code) == CodeLength
		},
		gen.SliceOfN(PayloadLength, gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}

// TestCanonicalize_Properties verifies canonical output shape and idempotence for arbitrary input.
func TestCanonicalize_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("canonical form is always 12 digits", prop.ForAll(
		func(raw string) bool {
			c := Canonicalize(raw)
			return len(c) == PayloadLength && isDigits(string(c))
		},
		gen.AnyString(),
	))

	properties.Property("canonicalize is idempotent", prop.ForAll(
		func(raw string) bool {
			c := Canonicalize(raw)
			return Canonicalize(string(c)) == c
		},
		gen.AnyString(),
	))

	properties.Property("digit strings of 12 or fewer keep their digits", prop.ForAll(
		func(raw string) bool {
			if len(raw) > PayloadLength {
				raw = raw[:PayloadLength]
			}
			return strings.HasSuffix(string(Canonicalize(raw)), raw)
		},
		gen.NumString(),
	))

	properties.TestingRun(t)
}

// TestEncode_AlwaysNinetyFiveModules verifies every resolved code encodes with guards in place.
func TestEncode_AlwaysNinetyFiveModules(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("resolved codes encode to 95 modules with guards", prop.ForAll(
		func(raw string) bool {
			p, err := Encode(Resolve(raw))
			if err != nil {
				return false
			}
			s := p.String()
			return len(s) == Modules && s[:3] == "101" && s[45:50] == "01010" && s[92:] == "101"
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
