package main

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

type suffixMultiplier struct {
	suffix     string
	multiplier float64
}

var sizeSuffixes []suffixMultiplier = []suffixMultiplier{
	{"kib", 1024}, {"kb", 1024}, {"ki", 1024}, {"k", 1024},
	{"mib", 1024 * 1024}, {"mb", 1024 * 1024}, {"mi", 1024 * 1024}, {"m", 1024 * 1024},
	{"gib", 1024 * 1024 * 1024}, {"gb", 1024 * 1024 * 1024}, {"gi", 1024 * 1024 * 1024}, {"g", 1024 * 1024 * 1024},
	{"b", 1},
}

// longer suffixes first, so "ms" is not taken for "s" and "minutes" is not taken for "s"
var timeSuffixes []suffixMultiplier = []suffixMultiplier{
	{"microseconds", float64(time.Microsecond)}, {"microsecond", float64(time.Microsecond)}, {"mks", float64(time.Microsecond)},
	{"milliseconds", float64(time.Millisecond)}, {"millisecond", float64(time.Millisecond)}, {"ms", float64(time.Millisecond)},
	{"seconds", float64(time.Second)}, {"second", float64(time.Second)},
	{"minutes", float64(time.Minute)}, {"minute", float64(time.Minute)},
	{"hours", float64(time.Hour)}, {"hour", float64(time.Hour)},
	{"days", float64(24 * time.Hour)}, {"day", float64(24 * time.Hour)},
	{"s", float64(time.Second)}, {"m", float64(time.Minute)}, {"h", float64(time.Hour)}, {"d", float64(24 * time.Hour)},
}

func parseSuffixed(value string, suffixes []suffixMultiplier) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	value = strings.ToLower(value)

	var multiplier float64 = 1
	for _, v := range suffixes {
		if strings.HasSuffix(value, v.suffix) {
			value = strings.TrimSpace(value[0 : len(value)-len(v.suffix)])
			multiplier = v.multiplier
			break
		}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return int64(v * multiplier), nil
}

func parseSizeString(size string) (int64, error) {
	return parseSuffixed(size, sizeSuffixes)
}

// parseTimeDuration accepts a number with an optional unit suffix; a bare number is nanoseconds.
func parseTimeDuration(duration string) (time.Duration, error) {
	v, err := parseSuffixed(duration, timeSuffixes)
	return time.Duration(v), err
}

func randomString(length int, alphabet []rune) string {
	max := big.NewInt(int64(len(alphabet)))
	rv := make([]rune, length)
	for i := range rv {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		rv[i] = alphabet[n.Int64()]
	}
	return string(rv)
}

// skipByPatterns reports whether none of the values pass the include/exclude patterns.
// Empty includes means everything is included.
func skipByPatterns(includes, excludes, values []string, match func(pattern, value string) bool) bool {
	matchAny := func(patterns []string) bool {
		for _, pattern := range patterns {
			for _, value := range values {
				if match(pattern, value) {
					return true
				}
			}
		}
		return false
	}
	if len(includes) > 0 && !matchAny(includes) {
		return true
	}
	return matchAny(excludes)
}
