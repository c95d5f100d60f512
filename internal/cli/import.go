package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/domain"
	pgloader "quiz-room-service/internal/infra/postgres"
)

// NewImportCmd stores a question set from a JSON file in the question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a question set into the question bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			quiz, err := readQuizFile(args[0])
			if err != nil {
				return err
			}
			if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgloader.NewQuizLoader(pool).SaveQuiz(cmd.Context(), quiz); err != nil {
				return err
			}
			log.Info().Str("quiz", quiz.ID).Int("questions", len(quiz.Questions)).Msg("question set imported")
			return nil
		},
	}
}

func readQuizFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if quiz.ID == "" {
		return domain.Quiz{}, fmt.Errorf("%s: quiz id is required", path)
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%s: quiz has no questions", path)
	}
	return quiz, nil
}
