package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/JobTracker/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// DefaultCoverLetterModel is used when no model name is configured.
const DefaultCoverLetterModel = "gemini-2.5-flash"

const (
	promptDescriptionLimit   = 500
	fallbackDescriptionLimit = 50
	defaultCandidate         = "Job Seeker"
)

// CoverLetterService drafts cover letters with a language model and falls
// back to a template when the model is missing or fails.
type CoverLetterService struct {
	model llms.Model
	log   *zap.Logger
}

// NewCoverLetterService wraps model. A nil model always yields the template.
func NewCoverLetterService(model llms.Model, log *zap.Logger) *CoverLetterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoverLetterService{model: model, log: log}
}

// NewGeminiModel builds a Google AI model client. An empty apiKey returns a
// nil model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (llms.Model, error) {
	if apiKey == "" {
		return nil, nil
	}
	if model == "" {
		model = DefaultCoverLetterModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return llm, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func candidate(r models.CoverLetterRequest) string {
	if name := strings.TrimSpace(r.UserName); name != "" {
		return name
	}
	return defaultCandidate
}

// Generate returns a letter for req. It never fails for model errors; only
// a request without company or position is rejected.
func (s *CoverLetterService) Generate(ctx context.Context, req models.CoverLetterRequest) (string, error) {
	if strings.TrimSpace(req.Company) == "" || strings.TrimSpace(req.Position) == "" {
		return "", fmt.Errorf("%w: company and position are required", models.ErrValidation)
	}
	if s.model == nil {
		return fallbackLetter(req), nil
	}

	letter, err := llms.GenerateFromSinglePrompt(ctx, s.model, coverLetterPrompt(req))
	if err != nil || strings.TrimSpace(letter) == "" {
		s.log.Warn("cover letter model failed, using template", zap.Error(err))
		return fallbackLetter(req), nil
	}
	return strings.TrimSpace(letter), nil
}

func coverLetterPrompt(req models.CoverLetterRequest) string {
	desc := "N/A"
	if req.Description != "" {
		desc = truncate(req.Description, promptDescriptionLimit)
	}
	var b strings.Builder
	b.WriteString("Write a professional cover letter for a job application.\n")
	fmt.Fprintf(&b, "Candidate: %s\n", candidate(req))
	fmt.Fprintf(&b, "Company: %s\n", req.Company)
	fmt.Fprintf(&b, "Position: %s\n", req.Position)
	fmt.Fprintf(&b, "Job Desc: %s\n", desc)
	b.WriteString("Keep it under 200 words.")
	return b.String()
}

func fallbackLetter(req models.CoverLetterRequest) string {
	interest := "I have followed your company's work for some time and admire your commitment to innovation."
	if req.Description != "" {
		interest = fmt.Sprintf(
			"I was particularly drawn to this opportunity because of the requirement for: %q... My background aligns well with these needs.",
			truncate(req.Description, fallbackDescriptionLimit),
		)
	}
	return fmt.Sprintf(`Dear Hiring Manager at %[1]s,

I am writing to express my enthusiastic interest in the %[2]s role. With a strong passion for technology and a dedication to continuous learning, I am confident in my ability to contribute effectively to your team.

%[3]s

I am eager to bring my problem-solving skills and technical expertise to %[1]s. Thank you for considering my application. I look forward to the possibility of discussing how I can contribute to your success.

Sincerely,
%[4]s`, req.Company, req.Position, interest, candidate(req))
}
