package server

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxNicknameLength = 20
	maxAnswerLength   = 200
	gameCodeLength    = 6
	minIntervalSecs   = 15
	maxIntervalSecs   = 1800
	minDepth          = 1
	maxDepth          = 5
)

func validateNickname(name string) (string, error) {
	return validateText("nickname", name, maxNicknameLength)
}

func validateAnswer(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", errors.New("answer is required")
	}
	if len(trimmed) > maxAnswerLength {
		return "", fmt.Errorf("answer must be %d characters or fewer", maxAnswerLength)
	}
	return trimmed, nil
}

func validateGameCode(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if len(trimmed) != gameCodeLength {
		return "", fmt.Errorf("game code must be %d characters", gameCodeLength)
	}
	for _, r := range trimmed {
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '2' && r <= '9' {
			continue
		}
		return "", errors.New("game code contains unsupported characters")
	}
	return trimmed, nil
}

func validateInterval(seconds int) (int, error) {
	if seconds == 0 {
		return 120, nil
	}
	if seconds < minIntervalSecs || seconds > maxIntervalSecs {
		return 0, fmt.Errorf("interval must be between %d and %d seconds", minIntervalSecs, maxIntervalSecs)
	}
	return seconds, nil
}

func validateDepth(depth int) (int, error) {
	if depth == 0 {
		return 3, nil
	}
	if depth < minDepth || depth > maxDepth {
		return 0, fmt.Errorf("depth must be between %d and %d", minDepth, maxDepth)
	}
	return depth, nil
}

func validateLanguage(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return "en", nil
	}
	if len(trimmed) < 2 || len(trimmed) > 8 {
		return "", errors.New("language code is invalid")
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r == '-' {
			continue
		}
		return "", errors.New("language code is invalid")
	}
	return trimmed, nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
