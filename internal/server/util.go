package server

import (
	"crypto/rand"
	"regexp"
	"strings"
)

func newGameCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=)([A-Za-z0-9_-]{6,20})`),
	regexp.MustCompile(`(?:youtu\.be/)([A-Za-z0-9_-]{6,20})`),
	regexp.MustCompile(`(?:youtube\.com/embed/)([A-Za-z0-9_-]{6,20})`),
	regexp.MustCompile(`(?:youtube\.com/shorts/)([A-Za-z0-9_-]{6,20})`),
}

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// extractVideoID pulls the video id out of the common YouTube URL shapes.
// A bare id is accepted as-is.
func extractVideoID(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	for _, pattern := range videoIDPatterns {
		if match := pattern.FindStringSubmatch(trimmed); match != nil {
			return match[1], true
		}
	}
	if bareVideoID.MatchString(trimmed) && !strings.Contains(trimmed, "/") {
		return trimmed, true
	}
	return "", false
}

func shuffledOptions(correct string, incorrect []string) []string {
	options := make([]string, 0, len(incorrect)+1)
	options = append(options, correct)
	options = append(options, incorrect...)
	buf := make([]byte, len(options))
	if _, err := rand.Read(buf); err != nil {
		return options
	}
	for i := len(options) - 1; i > 0; i-- {
		j := int(buf[i]) % (i + 1)
		options[i], options[j] = options[j], options[i]
	}
	return options
}
