package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EnvMaxInputSize overrides DefaultMaxInputSize.
const EnvMaxInputSize = "PLOTFORGE_MAX_INPUT_SIZE"

// DefaultMaxInputSize bounds a single line of player input in bytes.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects oversized or non UTF-8 input, drops control
// characters other than newline, tab and carriage return, and trims the
// surrounding whitespace. Oversized input is rejected, never truncated.
func SanitizeInput(input string) (string, error) {
	if limit := maxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, unsafeControl) < 0 {
		return strings.TrimSpace(input), nil
	}
	clean := strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(clean), nil
}

// IsQuit reports whether the input asks to leave an interactive loop.
func IsQuit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
