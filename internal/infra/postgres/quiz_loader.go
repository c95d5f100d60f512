package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-room-service/internal/domain"
)

// QuizLoader loads stored question sets from the question_sets table.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT title, time_limit, questions FROM question_sets WHERE id=$1`, quizID,
	).Scan(&quiz.Title, &quiz.TimeLimit, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load question set: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	return quiz, nil
}

// SaveQuiz inserts or replaces a question set.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("save question set: missing id")
	}
	raw, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal question set: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_sets (id, title, time_limit, questions)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, time_limit = EXCLUDED.time_limit, questions = EXCLUDED.questions`,
		quiz.ID, quiz.Title, quiz.TimeLimit, string(raw))
	if err != nil {
		return fmt.Errorf("save question set %s: %w", quiz.ID, err)
	}
	return nil
}
