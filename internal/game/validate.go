// internal/game/validate.go
package game

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	RoomCodeLength = 6
	MaxNameLength  = 20
)

var (
	roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeRoomCode trims and upper-cases code after checking it is exactly six
// alphanumeric characters.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !roomCodePattern.MatchString(code) {
		return "", validationError("Invalid room code format")
	}
	return strings.ToUpper(code), nil
}

// SanitizeName trims name, strips tag-like substrings and checks the result is 1 to 20
// printable characters.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(htmlTagPattern.ReplaceAllString(strings.TrimSpace(name), ""))
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return "", validationError("Name must be between 1 and %d characters", MaxNameLength)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", validationError("Name contains invalid characters")
		}
	}
	return name, nil
}
