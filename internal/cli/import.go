package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizquest-service/internal/app"
	"quizquest-service/internal/config"
	"quizquest-service/internal/domain"
	"quizquest-service/internal/importer"
	"quizquest-service/internal/logging"
)

// NewImportCmd loads challenges into the configured catalog.
func NewImportCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import challenges from a JSON file or Open Trivia DB",
	}
	cmd.AddCommand(newImportFileCmd(configPath), newImportOpenTDBCmd(configPath))
	return cmd
}

func newImportFileCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>",
		Short: "Import challenges from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			challenges, err := domain.DecodeChallenges(data)
			if err != nil {
				return err
			}
			return withImportService(cmd.Context(), *configPath, func(_ config.Config, svc *app.SubmissionService, log logrus.FieldLogger) error {
				return importAndReport(cmd.Context(), svc, log, challenges)
			})
		},
	}
}

func newImportOpenTDBCmd(configPath *string) *cobra.Command {
	var req importer.OpenTDBRequest
	var difficulty string
	cmd := &cobra.Command{
		Use:   "opentdb",
		Short: "Fetch a multiple-choice challenge from Open Trivia DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Difficulty = domain.Difficulty(difficulty)
			return withImportService(cmd.Context(), *configPath, func(cfg config.Config, svc *app.SubmissionService, log logrus.FieldLogger) error {
				challenge, err := importer.NewOpenTDB(cfg.Import.OpenTDBURL, nil).Fetch(cmd.Context(), req)
				if err != nil {
					return err
				}
				return importAndReport(cmd.Context(), svc, log, []domain.Challenge{challenge})
			})
		},
	}
	cmd.Flags().IntVar(&req.Amount, "amount", 10, "number of questions")
	cmd.Flags().StringVar(&req.Category, "category", "", "Open Trivia DB category id")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}

func withImportService(ctx context.Context, configPath string, fn func(config.Config, *app.SubmissionService, logrus.FieldLogger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured; imports into the in-memory catalog would be lost")
	}
	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()
	svc := app.NewSubmissionService(b.challenges, b.catalog, b.attempts, b.profiles, app.WithLogger(log))
	return fn(cfg, svc, log)
}

func importAndReport(ctx context.Context, svc *app.SubmissionService, log logrus.FieldLogger, challenges []domain.Challenge) error {
	report, err := svc.ImportChallenges(ctx, challenges)
	if err != nil {
		return err
	}
	for _, c := range report.Created {
		log.WithFields(logrus.Fields{"id": c.ID, "title": c.Title}).Info("challenge imported")
	}
	for _, e := range report.Errors {
		log.WithField("index", e.Index).Warn(e.Message)
	}
	if len(report.Created) == 0 {
		return fmt.Errorf("no challenges imported")
	}
	return nil
}
