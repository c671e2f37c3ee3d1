// Package main seeds a template store with sample templates.
//
// The command is idempotent: templates already present in the metadata
// index (same department, app code and name) are skipped. It is meant for
// the gitrepo and bitbucket drivers; seeding the memory driver is lost on exit.
//
// When security.jwt_signing_key is set, a development token for the seed
// actor is printed to stdout so the API can be called right away.
//
// Import Path: prompthub.io/prompthub/cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/api/middleware"
	"prompthub.io/prompthub/internal/app/modules"
	"prompthub.io/prompthub/internal/config"
	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/pkg/logger"
	"prompthub.io/prompthub/internal/service"
)

const (
	seedActor   = "prompthub-seed"
	devTokenTTL = 24 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infra.Close()

	deps := modules.NewServerDeps([]modules.Module{modules.NewTemplatesModule(infra)})

	logger.Info("Starting template seeding...", zap.String("driver", cfg.Store.Driver))
	created, err := seedTemplates(ctx, deps.Templates, sampleTemplates())
	if err != nil {
		return err
	}
	logger.Info("Template seeding completed", zap.Int("created", created))

	token, err := devToken(cfg.Security.JWTSigningKey, time.Now())
	if err != nil {
		return fmt.Errorf("issue development token: %w", err)
	}
	if token != "" {
		fmt.Fprintf(os.Stdout, "Authorization: Bearer %s\n", token)
	}
	return nil
}

// devToken mints a token for the seed actor, or "" without a signing key.
func devToken(signingKey string, now time.Time) (string, error) {
	signingKey = strings.TrimSpace(signingKey)
	if signingKey == "" {
		return "", nil
	}
	token, expiresAt, err := middleware.GenerateToken(middleware.JWTConfig{
		SigningKey: []byte(signingKey),
		Issuer:     middleware.DefaultIssuer,
		ExpiresIn:  devTokenTTL,
	}, seedActor, seedActor)
	if err != nil {
		return "", err
	}
	logger.Info("Development token issued",
		zap.String("user", seedActor),
		zap.Time("expires_at", expiresAt),
		zap.Duration("valid_for", expiresAt.Sub(now).Round(time.Minute)),
	)
	return token, nil
}

// sampleTemplates returns the built-in sample catalogue.
func sampleTemplates() []service.TemplateInput {
	return []service.TemplateInput{
		{
			Name:         "Risk Check",
			Department:   "Finance",
			AppCode:      "RC1",
			Content:      "Evaluate the credit risk of the following application and explain the main drivers.",
			Instructions: "Answer in three bullet points.",
			Examples: []any{map[string]any{
				"User Input":      "Applicant with 40% debt-to-income ratio and two late payments.",
				"Expected Output": "Medium risk. High debt ratio. Recent late payments. Stable income.",
			}},
		},
		{
			Name:       "Invoice Summary",
			Department: "Finance",
			AppCode:    "AP2",
			Content:    "Summarise the invoice below: vendor, total amount, due date.",
		},
		{
			Name:         "Job Description",
			Department:   "HR",
			AppCode:      "REC",
			Content:      "Write a job description for the role described below.",
			Instructions: "Keep it under 300 words.",
		},
	}
}

type templateCreator interface {
	List(ctx context.Context) ([]domain.TemplateSummary, error)
	Create(ctx context.Context, actor string, in service.TemplateInput) (*service.CreateResult, error)
}

// seedTemplates creates every sample that the index does not already hold.
func seedTemplates(ctx context.Context, svc templateCreator, samples []service.TemplateInput) (int, error) {
	existing, err := svc.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[seedKey(t.Department, t.AppCode, t.Name)] = true
	}

	created := 0
	for _, in := range samples {
		key := seedKey(in.Department, in.AppCode, in.Name)
		if seen[key] {
			logger.Debug("Template already exists, skipping", zap.String("name", in.Name))
			continue
		}
		res, err := svc.Create(ctx, seedActor, in)
		if err != nil {
			return created, fmt.Errorf("create template %q: %w", in.Name, err)
		}
		seen[key] = true
		created++
		logger.Info("Template seeded", zap.String("path", res.FilePath), zap.String("id", res.Template.ID))
	}
	return created, nil
}

func seedKey(department, appCode, name string) string {
	return strings.ToLower(department + "/" + appCode + "/" + name)
}
