package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var translationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"translation": {"type": "string", "description": "The translated text."}
	},
	"required": ["translation"]
}`)

type translatedText struct {
	Translation string `json:"translation"`
}

// translateText translates question text into the player's language. Results
// are cached per game so toggling between languages never re-translates.
func (s *Server) translateText(ctx context.Context, gameCode, text, targetLanguage string) (string, error) {
	cacheKey := targetLanguage + "|" + text
	if cached, hit := s.store.CachedTranslation(gameCode, cacheKey); hit {
		return cached, nil
	}

	reqBody := openAIChatRequest{
		Model: s.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: "Translate the user's text. Preserve meaning and tone; return only the translation."},
			{Role: "user", Content: fmt.Sprintf("Translate into %s:\n\n%s", targetLanguage, text)},
		},
		Tools: []openAITool{{
			Type: "function",
			Function: openAIFunction{
				Name:        "submit_translation",
				Description: "Submit the translated text.",
				Parameters:  translationSchema,
			},
		}},
		ToolChoice: map[string]any{"type": "function", "function": map[string]string{"name": "submit_translation"}},
		MaxTokens:  400,
	}

	arguments, err := s.callOpenAI(ctx, reqBody, "submit_translation")
	if err != nil {
		return "", err
	}
	var parsed translatedText
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return "", errors.New("failed to parse translation")
	}
	translation := strings.TrimSpace(parsed.Translation)
	if translation == "" {
		return "", errors.New("translation was empty")
	}

	_, _ = s.store.UpdateGame(gameCode, func(game *Game) error {
		game.Translations[cacheKey] = translation
		return nil
	})
	return translation, nil
}
