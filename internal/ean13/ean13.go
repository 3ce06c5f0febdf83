// Package ean13 implements EAN-13 code canonicalization, check digit arithmetic and
// the 95-module symbol encoding. Every code that is printed, stored or shown passes
// through Resolve exactly once.
package ean13

import (
	"fmt"
	"strings"
)

const (
	// PayloadLength is the number of digits before the check digit
	PayloadLength = 12
	// CodeLength is the full EAN-13 length
	CodeLength = 13
	// Modules is the width of an EAN-13 symbol in modules, guards included
	Modules = 95
)

// Canonical is a 12-digit payload without check digit
type Canonical string

// Code is a complete 13-digit EAN-13 code whose last digit is the check digit
type Code string

// Digits returns the code's numeric digit values
func (c Code) Digits() []int {
	digits := make([]int, len(c))
	for i := 0; i < len(c); i++ {
		digits[i] = int(c[i] - '0')
	}
	return digits
}

// Payload returns the first 12 digits
func (c Code) Payload() Canonical {
	if len(c) < PayloadLength {
		return Canonicalize(string(c))
	}
	return Canonical(c[:PayloadLength])
}

// Valid reports whether c is 13 digits with a correct check digit
func (c Code) Valid() bool {
	if len(c) != CodeLength || !isDigits(string(c)) {
		return false
	}
	return int(c[PayloadLength]-'0') == CheckDigit(Canonical(c[:PayloadLength]))
}

// Canonicalize turns arbitrary input into a 12-digit payload.
// Non-digits are dropped, long input is truncated to its first 12 digits and
// short input is left-padded with zeros. It never fails.
func Canonicalize(raw string) Canonical {
	var b strings.Builder
	b.Grow(PayloadLength)
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == PayloadLength {
			break
		}
	}

	digits := b.String()
	if len(digits) < PayloadLength {
		digits = strings.Repeat("0", PayloadLength-len(digits)) + digits
	}
	return Canonical(digits)
}

// CheckDigit computes the EAN-13 check digit: weights 1,3,1,3... from the left,
// check = (10 - sum mod 10) mod 10.
func CheckDigit(c Canonical) int {
	sum := 0
	for i := 0; i < len(c) && i < PayloadLength; i++ {
		d := int(c[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return (10 - sum%10) % 10
}

// Complete appends the check digit to a canonical payload
func Complete(c Canonical) Code {
	return Code(string(c) + string(rune('0'+CheckDigit(c))))
}

// Resolve canonicalizes raw input and completes it into a 13-digit code
func Resolve(raw string) Code {
	return Complete(Canonicalize(raw))
}

// Parse accepts exactly 13 digits with a valid check digit
func Parse(s string) (Code, error) {
	if len(s) != CodeLength || !isDigits(s) {
		return "", fmt.Errorf("invalid EAN-13 code %q: must be exactly 13 digits", s)
	}
	code := Code(s)
	if !code.Valid() {
		return "", fmt.Errorf("invalid EAN-13 code %q: check digit should be %d", s, CheckDigit(Canonical(s[:PayloadLength])))
	}
	return code, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
