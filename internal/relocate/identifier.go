package relocate

import (
	"fmt"
	"regexp"
)

var counterSuffix = regexp.MustCompile(`^(.+)_(\d+)$`)

// BaseIdentifier strips a trailing _<integer> counter from an identifier
func BaseIdentifier(identifier string) string {
	if m := counterSuffix.FindStringSubmatch(identifier); m != nil {
		return m[1]
	}
	return identifier
}

// UniqueIdentifier returns identifier unchanged with n == 0 when it is free.
// Otherwise it probes base_1, base_2, ... and returns the first free candidate
// together with its counter.
func UniqueIdentifier(identifier string, taken func(string) bool) (string, int) {
	if !taken(identifier) {
		return identifier, 0
	}
	base := BaseIdentifier(identifier)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !taken(candidate) {
			return candidate, n
		}
	}
}

// DisplayName appends the disambiguation counter to a prompt name
func DisplayName(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s (%d)", name, n)
}
