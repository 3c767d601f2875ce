package utils

import (
	"regexp"
	"strings"
)

// fileNumberPattern matches Nevada business file numbers such as
// "E10281132020-8": an optional letter prefix, the numeric body and an
// optional check digit.
var fileNumberPattern = regexp.MustCompile(`^[A-Z]{0,3}\d{4,14}(-\d)?$`)

// CleanFileNumber normalizes a raw file number for searching: trims
// whitespace and uppercases the prefix.
func CleanFileNumber(fileNumber string) string {
	return strings.ToUpper(strings.TrimSpace(fileNumber))
}

// IsValidFileNumber reports whether the (cleaned) file number has a
// plausible Nevada file number shape.
func IsValidFileNumber(fileNumber string) bool {
	return fileNumberPattern.MatchString(fileNumber)
}
