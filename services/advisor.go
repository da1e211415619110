package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/utils"

	"github.com/sirupsen/logrus"
)

const (
	AnalysisNoExpenses    = "There are no expenses to analyze. Please add some expenses first."
	AnalysisInvalidKey    = "There was an error with the AI service. Please ensure your API key is configured correctly."
	AnalysisFailed        = "Sorry, I couldn't complete the analysis due to an unexpected error. Please try again later."
	AnalysisNotConfigured = "The AI service is not configured. Set AI_PROVIDER and its API key to enable spending analysis."

	maxAnalyzedExpenses = 50
)

// AdvisorService produces a markdown spending analysis from the ledger.
type AdvisorService struct {
	ledger  *LedgerService
	gen     TextGenerator
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewAdvisorService accepts a nil gen; Analyze then reports that the
// service is not configured.
func NewAdvisorService(ledger *LedgerService, gen TextGenerator, timeout time.Duration, log logrus.FieldLogger) *AdvisorService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AdvisorService{ledger: ledger, gen: gen, timeout: timeout, log: log.WithField("component", "advisor")}
}

// Analyze returns an error only when the ledger cannot be read. Generator
// failures become one of the fixed apology messages.
func (s *AdvisorService) Analyze(ctx context.Context) (string, error) {
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if len(snap.Expenses) == 0 {
		return AnalysisNoExpenses, nil
	}
	if s.gen == nil {
		return AnalysisNotConfigured, nil
	}

	prompt, err := advisorPrompt(snap)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recent := min(len(snap.Expenses), maxAnalyzedExpenses)
	answer, err := s.gen.Generate(ctx, prompt)
	utils.LogAIAnalysis(s.log, "spending analysis", s.gen.Provider(), recent, err)
	if err != nil {
		switch {
		case errors.Is(err, ErrAINotConfigured):
			return AnalysisNotConfigured, nil
		case strings.Contains(err.Error(), "API key not valid"):
			return AnalysisInvalidKey, nil
		}
		return AnalysisFailed, nil
	}
	if strings.TrimSpace(answer) == "" {
		return AnalysisFailed, nil
	}
	return answer, nil
}

// advisorPrompt embeds the category names, the budgets and the most recent
// expenses (newest first, as the ledger lists them).
func advisorPrompt(snap Snapshot) (string, error) {
	names := make([]string, len(snap.Categories))
	for i, c := range snap.Categories {
		names[i] = c.Name
	}
	recent := snap.Expenses
	if len(recent) > maxAnalyzedExpenses {
		recent = recent[:maxAnalyzedExpenses]
	}

	namesJSON, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	budgets := snap.Budgets
	if budgets == nil {
		budgets = []models.Budget{}
	}
	budgetsJSON, err := json.Marshal(budgets)
	if err != nil {
		return "", err
	}
	expensesJSON, err := json.MarshalIndent(recent, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`
You are a friendly and insightful financial advisor AI. Your goal is to help the user understand their spending habits and find ways to save money.
Analyze the provided JSON data about their recent expenses and budgets.

**User's Financial Data:**
- **Currency:** Indian Rupee (₹)
- **Spending Categories:** %s
- **Category Budgets:** %s
- **Recent Expenses (up to %d entries):** %s

**Your Task:**
Based on the data, provide a concise and actionable financial analysis in markdown format. Structure your response with the following sections:

## Spending Overview
Provide a brief, high-level summary of the user's spending. Mention the total amount spent and the top spending categories.

## Budget Performance
Compare the spending in each category against its budget. Identify which categories are over, under, or on budget. Use a list format.

## Key Insights
Point out 1-2 interesting or significant patterns you've noticed. This could be high spending on a particular day, frequent small purchases, or unexpected expenses.

## Actionable Recommendations
Offer 2-3 specific, practical, and easy-to-implement tips for financial improvement based on your analysis.

**Formatting Rules:**
- Use '##' for main headings and '###' for subheadings if needed.
- Use '*' for list items.
- Use '**' to bold key terms and figures (e.g., **₹1,234** or **Groceries**).
- Keep the tone encouraging and helpful.
- The entire response should be in English.
`, namesJSON, budgetsJSON, maxAnalyzedExpenses, expensesJSON), nil
}
