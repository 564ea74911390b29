package server

import (
	"errors"
	"time"
)

var (
	errLobbyOnly        = errors.New("game has already started")
	errNoPlayers        = errors.New("no players have joined")
	errNotWatching      = errors.New("video is not playing")
	errQuestionMissing  = errors.New("no question is ready for this window")
	errStaleWindow      = errors.New("window already passed")
	errNoActiveQuestion = errors.New("no question is active")
)

const (
	phaseLobby    = "lobby"
	phaseWatching = "watching"
	phaseQuestion = "question"
	phaseFeedback = "feedback"
	phaseFinished = "finished"
)

const (
	wsRoleHost   = "host"
	wsRolePlayer = "player"
)

const pointsPerCorrectAnswer = 100

type GameSummary struct {
	GameCode string
	VideoID  string
	Phase    string
	Players  int
}

type Game struct {
	GameCode        string
	DBID            uint
	VideoID         string
	Phase           string
	PhaseStartedAt  time.Time
	IntervalSeconds int
	Depth           int
	GradeLevel      string
	Language        string
	MaxPlayers      int
	Players         []Player
	Current         *ActiveQuestion
	Ready           map[int]*Question
	Pacer           *Pacer
	Translations    map[string]string
}

type Player struct {
	ID       string
	DBID     uint
	Nickname string
	Score    int
	JoinedAt time.Time
}

// Question is the generated payload held by the host between pause and grading.
type Question struct {
	WindowID         int
	DBID             uint
	Text             string
	CorrectAnswer    string
	IncorrectAnswers []string
	ContentSegment   string
}

// ActiveQuestion tracks the single in-flight question and its collected answers.
// Answers are keyed by player id; the first submission per player wins.
type ActiveQuestion struct {
	Question
	Answers         map[string]string
	AnswersReceived int
	FeedbackShown   bool
	Results         []AnswerResult
}

type AnswerResult struct {
	PlayerID    string `json:"player_id"`
	Nickname    string `json:"nickname"`
	Answer      string `json:"answer"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}
