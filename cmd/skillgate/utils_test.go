package main

import (
	"io"
	"log"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestParseSizeString(t *testing.T) {
	for input, want := range map[string]int64{
		"":       0,
		"512":    512,
		"16k":    16384,
		"16 KiB": 16384,
		"1.5mb":  1572864,
		"2G":     2147483648,
		"10b":    10,
	} {
		got, err := parseSizeString(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseSizeString("lots")
	assert.Error(t, err)
}

func TestParseTimeDuration(t *testing.T) {
	for input, want := range map[string]time.Duration{
		"":          0,
		"100":       100,
		"30s":       30 * time.Second,
		"500ms":     500 * time.Millisecond,
		"250mks":    250 * time.Microsecond,
		"2 minutes": 2 * time.Minute,
		"1.5h":      90 * time.Minute,
		"7 days":    7 * 24 * time.Hour,
		"1d":        24 * time.Hour,
	} {
		got, err := parseTimeDuration(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := parseTimeDuration("a while")
	assert.Error(t, err)
}

func TestRandomString(t *testing.T) {
	alphabet := []rune("ab")
	s := randomString(64, alphabet)
	assert.Len(t, s, 64)
	for _, r := range s {
		assert.Contains(t, alphabet, r)
	}
	assert.NotEqual(t, randomString(32, generatedAuthTokenSecretAlphabet), randomString(32, generatedAuthTokenSecretAlphabet))
}

func TestSkipByPatterns(t *testing.T) {
	match := func(pattern, value string) bool {
		m, err := path.Match(pattern, value)
		return m && err == nil
	}
	values := []string{"/alexa/skill", "skill"}

	assert.False(t, skipByPatterns(nil, nil, values, match))
	assert.False(t, skipByPatterns([]string{"/alexa/*"}, nil, values, match))
	assert.True(t, skipByPatterns([]string{"/health"}, nil, values, match))
	assert.True(t, skipByPatterns(nil, []string{"skill"}, values, match))
	assert.True(t, skipByPatterns([]string{"/alexa/*"}, []string{"skill"}, values, match))
}
