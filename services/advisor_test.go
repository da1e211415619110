package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeGenerator) Provider() string { return "fake" }

func TestAdvisor_NoExpenses(t *testing.T) {
	gen := &fakeGenerator{answer: "unused"}
	a := NewAdvisorService(newTestLedger(t, nil), gen, time.Second, quietLogger())

	got, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AnalysisNoExpenses, got)
	assert.Empty(t, gen.prompts)
}

func TestAdvisor_PromptCarriesLedgerData(t *testing.T) {
	l := newTestLedger(t, nil)
	_, err := l.SetBudget(context.Background(), "Groceries", dec("150"))
	require.NoError(t, err)
	addExpense(t, l, "2024-05-01", "42", "Groceries")

	gen := &fakeGenerator{answer: "## Spending Overview\nAll good."}
	a := NewAdvisorService(l, gen, time.Second, quietLogger())

	got, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gen.answer, got)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, `"Groceries"`)
	assert.Contains(t, p, `{"category":"Groceries","amount":150}`)
	assert.Contains(t, p, `"amount": 42`)
	assert.Contains(t, p, "## Actionable Recommendations")
}

func TestAdvisor_LimitsToMostRecentExpenses(t *testing.T) {
	l := newTestLedger(t, nil)
	for i := 0; i < 60; i++ {
		day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		addExpense(t, l, day.Format("2006-01-02"), "1", "Other")
	}
	gen := &fakeGenerator{answer: "ok"}
	a := NewAdvisorService(l, gen, time.Second, quietLogger())

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	p := gen.prompts[0]
	assert.Equal(t, 50, strings.Count(p, `"id":`))
	assert.Contains(t, p, "2024-02-29")
	assert.NotContains(t, p, "2024-01-01")
}

func TestAdvisor_GeneratorFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  TextGenerator
		want string
	}{
		{name: "not configured", gen: nil, want: AnalysisNotConfigured},
		{name: "bad key", gen: &fakeGenerator{err: errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key.")}, want: AnalysisInvalidKey},
		{name: "other error", gen: &fakeGenerator{err: errors.New("deadline exceeded")}, want: AnalysisFailed},
		{name: "empty answer", gen: &fakeGenerator{answer: "  "}, want: AnalysisFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t, nil)
			addExpense(t, l, "2024-05-01", "5", "Health")
			a := NewAdvisorService(l, tt.gen, time.Second, quietLogger())

			got, err := a.Analyze(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
