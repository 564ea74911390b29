package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Tools       []openAITool        `json:"tools,omitempty"`
	ToolChoice  any                 `json:"tool_choice,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type generatedQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// GradeVerdict is the grader's judgement on one submitted answer.
type GradeVerdict struct {
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

var questionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"question": {"type": "string", "description": "A reflective question about the video content."},
		"correct_answer": {"type": "string", "description": "The correct answer."},
		"incorrect_answers": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Two plausible but incorrect answers."
		}
	},
	"required": ["question", "correct_answer", "incorrect_answers"]
}`)

var verdictSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"is_correct": {"type": "boolean", "description": "Whether the answer should be accepted."},
		"explanation": {"type": "string", "description": "One sentence explaining the verdict to the student."}
	},
	"required": ["is_correct", "explanation"]
}`)

// generateQuestion asks the model for one multiple-choice reflective question
// grounded in the transcript segment the class just watched.
func (s *Server) generateQuestion(ctx context.Context, game *Game, segment string) (*Question, error) {
	systemPrompt := fmt.Sprintf(
		"You write reflective comprehension questions for a classroom watching a video together. "+
			"Write for grade level %s at depth %d on a 1-5 scale, where 1 asks for recall and 5 asks for analysis. "+
			"Respond in language %q. Ground the question in the transcript excerpt; never ask about anything outside it.",
		game.GradeLevel, game.Depth, game.Language)
	userPrompt := "Transcript excerpt from the section just watched:\n\n" + segment
	if strings.TrimSpace(segment) == "" {
		userPrompt = "No transcript is available for this section. Ask a general reflective question about paying attention to the video."
	}

	reqBody := openAIChatRequest{
		Model: s.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Tools: []openAITool{{
			Type: "function",
			Function: openAIFunction{
				Name:        "submit_question",
				Description: "Submit the generated question with its answer options.",
				Parameters:  questionSchema,
			},
		}},
		ToolChoice:  map[string]any{"type": "function", "function": map[string]string{"name": "submit_question"}},
		Temperature: 0.7,
		MaxTokens:   500,
	}

	arguments, err := s.callOpenAI(ctx, reqBody, "submit_question")
	if err != nil {
		return nil, err
	}
	var parsed generatedQuestion
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse generated question")
	}
	if strings.TrimSpace(parsed.Question) == "" || strings.TrimSpace(parsed.CorrectAnswer) == "" {
		return nil, errors.New("model returned an empty question")
	}
	if len(parsed.IncorrectAnswers) < 2 {
		return nil, errors.New("model returned too few answer options")
	}
	return &Question{
		Text:             strings.TrimSpace(parsed.Question),
		CorrectAnswer:    strings.TrimSpace(parsed.CorrectAnswer),
		IncorrectAnswers: parsed.IncorrectAnswers[:2],
	}, nil
}

// gradeAnswer asks the model to judge a free-text answer leniently. Partial
// understanding in the student's own words counts as correct.
func (s *Server) gradeAnswer(ctx context.Context, question Question, answer string) (GradeVerdict, error) {
	systemPrompt := "You grade a student's answer to a comprehension question. Be lenient: accept answers " +
		"that show understanding even when the wording differs from the expected answer. " +
		"Reject answers that are off-topic or contradict the expected answer."
	userPrompt := fmt.Sprintf("Question: %s\nExpected answer: %s\nStudent answer: %s",
		question.Text, question.CorrectAnswer, answer)
	if strings.TrimSpace(question.ContentSegment) != "" {
		userPrompt = "Transcript excerpt the question was drawn from:\n" +
			question.ContentSegment + "\n\n" + userPrompt
	}

	reqBody := openAIChatRequest{
		Model: s.cfg.OpenAIModel,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Tools: []openAITool{{
			Type: "function",
			Function: openAIFunction{
				Name:        "submit_verdict",
				Description: "Submit the grading verdict.",
				Parameters:  verdictSchema,
			},
		}},
		ToolChoice: map[string]any{"type": "function", "function": map[string]string{"name": "submit_verdict"}},
		MaxTokens:  200,
	}

	arguments, err := s.callOpenAI(ctx, reqBody, "submit_verdict")
	if err != nil {
		return GradeVerdict{}, err
	}
	var verdict GradeVerdict
	if err := json.Unmarshal([]byte(arguments), &verdict); err != nil {
		return GradeVerdict{}, fmt.Errorf("failed to parse grading verdict")
	}
	return verdict, nil
}

func (s *Server) callOpenAI(ctx context.Context, reqBody openAIChatRequest, wantFunction string) (string, error) {
	if strings.TrimSpace(s.cfg.OpenAIAPIKey) == "" {
		return "", errors.New("OpenAI API key is not configured")
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	endpoint := openAIChatCompletionsURL
	if s.openAIBaseURL != "" {
		endpoint = s.openAIBaseURL + "/v1/chat/completions"
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(s.cfg.OpenAIAPIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach OpenAI")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	for _, call := range parsed.Choices[0].Message.ToolCalls {
		if call.Function.Name == wantFunction {
			return call.Function.Arguments, nil
		}
	}
	// Some models answer in plain content despite the tool_choice hint.
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if strings.HasPrefix(content, "{") {
		return content, nil
	}
	return "", errors.New("OpenAI response did not include the expected function call")
}

func (s *Server) httpClient() *http.Client {
	if s.client != nil {
		return s.client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// localGrade is the fallback used when the grader is unreachable: exact
// case-insensitive match against the expected answer.
func localGrade(question Question, answer string) GradeVerdict {
	if strings.EqualFold(normalizeText(answer), normalizeText(question.CorrectAnswer)) {
		return GradeVerdict{IsCorrect: true, Explanation: "Matches the expected answer."}
	}
	return GradeVerdict{IsCorrect: false, Explanation: "The expected answer was: " + question.CorrectAnswer}
}
