package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"healthreport/internal/domain"
)

// DiagnosisRequest is the survey content sent for an AI comment.
type DiagnosisRequest struct {
	Title      string
	Questions  []domain.Question
	Anxieties  string
	GoodThings string
}

const diagnosisInstructions = `You are a kind, supportive counselor. Based on the weekly reflection below, write a warm comment of about 200 characters that helps the user feel positive about the coming week.
Address the questions with low scores and the listed worries directly, but always finish with encouragement or reassuring words.`

// BuildDiagnosisPrompt renders the prompt for a weekly reflection comment.
func BuildDiagnosisPrompt(req DiagnosisRequest) string {
	var b strings.Builder
	b.WriteString(diagnosisInstructions)
	b.WriteString("\n\n[Title]\n")
	b.WriteString(req.Title)
	b.WriteString("\n\n[Questions and scores]\n")
	for _, q := range req.Questions {
		fmt.Fprintf(&b, "- %s: %d/5\n", q.Text, q.Score)
	}
	b.WriteString("\n[Worries]\n")
	b.WriteString(req.Anxieties)
	b.WriteString("\n\n[Good things]\n")
	b.WriteString(req.GoodThings)
	b.WriteString("\n\n---\n\nComment:")
	return b.String()
}

// NoopCommenter stands in when no AI provider is configured.
type NoopCommenter struct{}

// Comment always fails.
func (NoopCommenter) Comment(context.Context, string) (string, error) {
	return "", errors.New("AI provider is not configured")
}
