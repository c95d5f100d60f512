package http

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

type createRoomPayload struct {
	Questions domain.QuestionList `json:"questions"`
	QuizID    string              `json:"quizId"`
	TimeLimit *int                `json:"timeLimit"`
}

type joinRoomPayload struct {
	Pin  string `json:"pin"`
	Name string `json:"name"`
}

type pinPayload struct {
	Pin string `json:"pin"`
}

type submitScorePayload struct {
	Pin   string `json:"pin"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

func parsePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, domain.InvalidPayload("Missing payload")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, domain.InvalidPayload("Malformed payload")
	}
	return v, nil
}

// handleCreateRoom prefers inline questions and falls back to the question
// bank when only a quizId is given. An explicit timeLimit always wins.
func (g *Gateway) handleCreateRoom(ctx context.Context, raw json.RawMessage) (app.Command, error) {
	p, err := parsePayload[createRoomPayload](raw)
	if err != nil {
		return nil, err
	}

	cmd := app.CreateRoom{Questions: p.Questions}
	if len(p.Questions) == 0 {
		if p.QuizID == "" || g.quizzes == nil {
			return nil, domain.InvalidPayload("Questions are required")
		}
		quiz, err := g.quizzes.GetQuiz(ctx, p.QuizID)
		if err != nil {
			return nil, fmt.Errorf("load quiz %s: %w", p.QuizID, err)
		}
		if len(quiz.Questions) == 0 {
			return nil, domain.InvalidPayload("Quiz has no questions")
		}
		cmd.Questions = quiz.Questions
		cmd.TimeLimit = quiz.TimeLimit
	}
	if p.TimeLimit != nil {
		cmd.TimeLimit = *p.TimeLimit
	}
	return cmd, nil
}

func handleJoinRoom(_ context.Context, raw json.RawMessage) (app.Command, error) {
	p, err := parsePayload[joinRoomPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.Pin == "" {
		return nil, domain.InvalidPayload("Pin is required")
	}
	if p.Name == "" {
		return nil, domain.InvalidPayload("Name is required")
	}
	return app.JoinRoom{Pin: p.Pin, Name: p.Name}, nil
}

func handleStartQuiz(_ context.Context, raw json.RawMessage) (app.Command, error) {
	p, err := parsePayload[pinPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.Pin == "" {
		return nil, domain.InvalidPayload("Pin is required")
	}
	return app.StartQuiz{Pin: p.Pin}, nil
}

func handleSubmitScore(_ context.Context, raw json.RawMessage) (app.Command, error) {
	p, err := parsePayload[submitScorePayload](raw)
	if err != nil {
		return nil, err
	}
	if p.Pin == "" {
		return nil, domain.InvalidPayload("Pin is required")
	}
	return app.SubmitScore{Pin: p.Pin, Score: p.Score, Total: p.Total}, nil
}

func handleGetRoomInfo(_ context.Context, raw json.RawMessage) (app.Command, error) {
	p, err := parsePayload[pinPayload](raw)
	if err != nil {
		return nil, err
	}
	if p.Pin == "" {
		return nil, domain.InvalidPayload("Pin is required")
	}
	return app.GetRoomInfo{Pin: p.Pin}, nil
}
