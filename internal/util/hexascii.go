package util

import (
	"errors"
	"strconv"
	"strings"
)

// ErrShortField is returned for a field too short to carry a prefix and digits.
var ErrShortField = errors.New("util: hex field shorter than its prefix")

func IsLikelyHex(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// ParsePrefixedHex drops the first two characters of field (normally "0x")
// and parses the rest as a hex number.
func ParsePrefixedHex(field string) (uint64, error) {
	field = strings.TrimSpace(field)
	if len(field) <= 2 {
		return 0, ErrShortField
	}
	return strconv.ParseUint(field[2:], 16, 64)
}

// ParseHex parses s as hex, with or without a 0x prefix.
func ParseHex(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if !IsLikelyHex(s) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseUint(s, 16, 64)
}
