package ean13

import (
	"fmt"
	"strings"
)

// Pattern is the 95-module bar sequence of one symbol; true is a bar
type Pattern [Modules]bool

// Len is always 95
func (p Pattern) Len() int {
	return len(p)
}

// String renders the pattern as a string of '0' and '1'
func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(Modules)
	for _, bar := range p {
		if bar {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Bars returns the number of set modules
func (p Pattern) Bars() int {
	n := 0
	for _, bar := range p {
		if bar {
			n++
		}
	}
	return n
}

var (
	startGuard  = [3]bool{true, false, true}
	centerGuard = [5]bool{false, true, false, true, false}
	endGuard    = [3]bool{true, false, true}
)

// Element encodings for digits 0-9; G is the reverse of R, R is the complement of L.
var (
	lCodes = [10]string{
		"0001101", "0011001", "0010011", "0111101", "0100011",
		"0110001", "0101111", "0111011", "0110111", "0001011",
	}
	gCodes = [10]string{
		"0100111", "0110011", "0011011", "0100001", "0011101",
		"0111001", "0000101", "0010001", "0001001", "0010111",
	}
	rCodes = [10]string{
		"1110010", "1100110", "1101100", "1000010", "1011100",
		"1001110", "1010000", "1000100", "1001000", "1110100",
	}
)

// parity selects L or G for digits 2-7, keyed by the first digit
var parity = [10]string{
	"LLLLLL", "LLGLGG", "LLGGLG", "LLGGGL", "LGLLGG",
	"LGGLLG", "LGGGLL", "LGLGLG", "LGLGGL", "LGGLGL",
}

// Encode translates a 13-digit code into its module pattern.
// It only fails for input that is not 13 digits, which Resolve never produces.
func Encode(code Code) (Pattern, error) {
	var p Pattern
	if len(code) != CodeLength || !isDigits(string(code)) {
		return p, fmt.Errorf("cannot encode %q: expected %d digits", code, CodeLength)
	}

	digits := code.Digits()
	pos := 0
	put := func(bits string) {
		for i := 0; i < len(bits); i++ {
			p[pos] = bits[i] == '1'
			pos++
		}
	}
	putGuard := func(guard []bool) {
		copy(p[pos:], guard)
		pos += len(guard)
	}

	putGuard(startGuard[:])
	set := parity[digits[0]]
	for i := 1; i <= 6; i++ {
		if set[i-1] == 'G' {
			put(gCodes[digits[i]])
		} else {
			put(lCodes[digits[i]])
		}
	}
	putGuard(centerGuard[:])
	for i := 7; i <= 12; i++ {
		put(rCodes[digits[i]])
	}
	putGuard(endGuard[:])

	if pos != Modules {
		return p, fmt.Errorf("encoded %d modules, expected %d", pos, Modules)
	}
	return p, nil
}
