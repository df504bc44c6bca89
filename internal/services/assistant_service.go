package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/gst"
	"ledgerwise/internal/logger"
)

// Answer sources reported to clients.
const (
	AnswerSourceAI       = "ai"
	AnswerSourceTemplate = "template"
	AnswerSourceFallback = "fallback"
)

const maxQuestionLength = 500

const (
	defaultGuidance = "I understand you're asking about your financial data. Configure a Gemini API key " +
		"on the server for detailed answers. For now I can summarise your GST, income, expenses " +
		"and top expense categories."
	fallbackApology = "I'm sorry, I couldn't process your request at the moment. Please try again later."
)

var quickQuestions = []string{
	"How much GST did I pay this month?",
	"What are my top 3 expense categories?",
	"Show me my total income vs expenses",
	"Calculate my net GST liability",
	"What's my biggest expense this quarter?",
}

// assistantService answers ledger questions from the user's own data.
type assistantService struct {
	transactions TransactionServicer
	gen          Generator
	loc          *time.Location
	now          func() time.Time
}

// NewAssistantService creates a new AssistantServicer. Without a generator
// questions are answered from fixed templates. Periods named in a question
// ("this month", "this quarter") are resolved in loc.
func NewAssistantService(transactions TransactionServicer, gen Generator, loc *time.Location) AssistantServicer {
	if loc == nil {
		loc = time.UTC
	}
	return &assistantService{transactions: transactions, gen: gen, loc: loc, now: time.Now}
}

// Suggestions returns the quick questions offered to users.
func (s *assistantService) Suggestions() []string {
	out := make([]string, len(quickQuestions))
	copy(out, quickQuestions)
	return out
}

// Ask answers question using a summary of the user's ledger. Model failures
// are logged and answered with an apology rather than returned.
func (s *assistantService) Ask(ctx context.Context, userID, question string) (*AssistantAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "question is required")
	}
	if len([]rune(question)) > maxQuestionLength {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "question must be at most 500 characters")
	}

	from, to := periodFor(question, s.now().In(s.loc))
	summary, err := s.transactions.GetSummary(userID, from, to)
	if err != nil {
		return nil, err
	}

	if s.gen == nil {
		return &AssistantAnswer{
			Answer:  templateAnswer(question, summary),
			Source:  AnswerSourceTemplate,
			Summary: summary,
		}, nil
	}

	answer, err := s.gen.Ask(ctx, assistantPrompt(question, summary))
	if err != nil {
		logger.Get().Errorw("assistant request failed", "error", err, "user_id", userID)
		return &AssistantAnswer{
			Answer:    fallbackApology,
			Source:    AnswerSourceFallback,
			Summary:   summary,
			Retryable: true,
		}, nil
	}
	return &AssistantAnswer{Answer: strings.TrimSpace(answer), Source: AnswerSourceAI, Summary: summary}, nil
}

// periodFor maps "month", "quarter" and "year" in a question to the current
// calendar period. Other questions cover the whole ledger.
func periodFor(question string, now time.Time) (*time.Time, *time.Time) {
	q := strings.ToLower(question)
	y, m, _ := now.Date()

	var start, end time.Time
	switch {
	case strings.Contains(q, "month"):
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	case strings.Contains(q, "quarter"):
		first := time.Month((int(m)-1)/3*3 + 1)
		start = time.Date(y, first, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 3, -1)
	case strings.Contains(q, "year"):
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return nil, nil
	}
	return &start, &end
}

// templateAnswer picks a canned reply by keyword.
func templateAnswer(question string, s *LedgerSummary) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "gst") &&
		(strings.Contains(q, "month") || strings.Contains(q, "pay") || strings.Contains(q, "liabil")):
		return fmt.Sprintf("Based on your ledger, you paid %s in Input GST and collected %s in Output GST. "+
			"Your net GST payable is %s.",
			gst.FormatINR(s.GSTPaid), gst.FormatINR(s.GSTCollected), gst.FormatINR(s.NetGSTPayable))

	case strings.Contains(q, "top") && strings.Contains(q, "categor"):
		if len(s.TopCategories) == 0 {
			return "You have no expenses recorded yet, so there are no top categories."
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Your top %d expense categories are:", len(s.TopCategories))
		for i, c := range s.TopCategories {
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, c.Name, gst.FormatINR(c.Total))
		}
		return b.String()

	case strings.Contains(q, "income") && strings.Contains(q, "expense"):
		return fmt.Sprintf("Your financial summary:\n• Total Income: %s\n• Total Expenses: %s\n• Net Profit: %s",
			gst.FormatINR(s.TotalIncome), gst.FormatINR(s.TotalExpenses), gst.FormatINR(s.NetProfit))

	case strings.Contains(q, "biggest") || strings.Contains(q, "largest"):
		if s.LargestExpense == nil {
			return "You have no expenses recorded for this period."
		}
		return fmt.Sprintf("Your biggest expense was %s to %s.",
			gst.FormatINR(s.LargestExpense.Total), s.LargestExpense.Name)
	}
	return defaultGuidance
}

// assistantPrompt builds the model prompt from the question and the ledger.
func assistantPrompt(question string, s *LedgerSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a bookkeeping assistant for Indian small businesses. "+
		"Answer this question about the user's finances: %q. ", question)
	fmt.Fprintf(&b, "Use this ledger data: Total Income: %s, Total Expenses: %s, GST Paid: %s, GST Collected: %s, Net GST Payable: %s",
		gst.FormatINR(s.TotalIncome), gst.FormatINR(s.TotalExpenses),
		gst.FormatINR(s.GSTPaid), gst.FormatINR(s.GSTCollected), gst.FormatINR(s.NetGSTPayable))
	for i, c := range s.TopCategories {
		if i == 0 {
			b.WriteString(", Top Expense Categories:")
		}
		fmt.Fprintf(&b, " %s %s;", c.Name, gst.FormatINR(c.Total))
	}
	b.WriteString(". Be helpful, accurate, and format numbers in Indian currency format.")
	return b.String()
}
