// Package utils holds the size and input helpers shared by the CLI, the
// config loader and the review UI.
package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Binary size units.
const (
	_   = iota
	KiB = 1 << (10 * iota)
	MiB
	GiB
	TiB
	PiB
	EiB
)

// ErrInvalidSize is returned by ParseSize for input it cannot read.
var ErrInvalidSize = errors.New("invalid size")

// unitPrefixes maps the first letter of a unit onto its multiplier. Decimal
// looking units ("MB") are read as binary ones.
var unitPrefixes = map[byte]uint64{
	'k': KiB,
	'm': MiB,
	'g': GiB,
	't': TiB,
	'p': PiB,
	'e': EiB,
}

var cleaner = strings.NewReplacer(" ", "", "_", "", ",", "")

// ParseSize reads sizes such as "512", "10K", "4MiB", "1.5 GB" or "1e3" as
// a byte count.
func ParseSize(input string) (uint64, error) {
	s := cleaner.Replace(strings.ToLower(strings.TrimSpace(input)))
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return scale(input, f, 1)
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if split <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, input)
	}

	f, err := strconv.ParseFloat(s[:split], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, input)
	}
	mult, ok := unitMultiplier(s[split:])
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, s[split:])
	}
	return scale(input, f, mult)
}

func unitMultiplier(unit string) (uint64, bool) {
	switch unit {
	case "b", "byte", "bytes":
		return 1, true
	}
	mult, ok := unitPrefixes[unit[0]]
	if !ok {
		return 0, false
	}
	switch unit[1:] {
	case "", "b", "i", "ib", "byte", "bytes", "ibyte", "ibytes":
		return mult, true
	}
	return 0, false
}

func scale(input string, f float64, mult uint64) (uint64, error) {
	v := f * float64(mult)
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidSize, input)
	case v < 0:
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidSize, input)
	case v >= math.MaxUint64:
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, input)
	}
	return uint64(v), nil
}

var unitNames = [...]string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// DisplaySize formats a byte count with two decimals in the largest binary
// unit that keeps the value at or above one.
func DisplaySize(bytes uint64) string {
	if bytes < KiB {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(KiB), 0
	for n := bytes / KiB; n >= KiB && exp < len(unitNames)-1; n /= KiB {
		div *= KiB
		exp++
	}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), unitNames[exp])
}

// IsAlphanumeric reports whether r is an ASCII letter or digit, the
// alphabet confirmation codes are drawn from.
func IsAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
