package summarizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"trade-journal/internal/models"
)

const (
	maxSimilarTrades = 5
	fallbackRunes    = 300

	defaultSummary  = "Trade analysis completed. Review the details below."
	defaultInsights = "Review your trade strategy and risk management approach."
	fallbackSummary = "Analysis generated successfully. Please review the trade details."
	formatInsights  = "The AI analysis encountered a formatting issue. Please review your trade manually."
)

// Analysis is the structured commentary stored on a trade.
type Analysis struct {
	Summary    string   `json:"summary"`
	Patterns   []string `json:"patterns"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Insights   string   `json:"insights"`
}

type similarTrade struct {
	Symbol     string             `json:"symbol"`
	TradeType  models.TradeType   `json:"tradeType"`
	ProfitLoss float64            `json:"profitLoss"`
	Status     models.TradeStatus `json:"status"`
}

// historyStats summarizes the closed trades of the owner.
type historyStats struct {
	closed  int
	winRate string
	total   float64
}

func statsOf(history []models.TradeRecord) historyStats {
	var s historyStats
	wins := 0
	for _, t := range history {
		if !t.IsClosed() {
			continue
		}
		s.closed++
		s.total += t.ProfitLoss
		if t.ProfitLoss > 0 {
			wins++
		}
	}
	s.winRate = "0"
	if s.closed > 0 {
		s.winRate = strconv.FormatFloat(float64(wins)/float64(s.closed)*100, 'f', 1, 64)
	}
	return s
}

// similarTo picks up to five other trades on the same symbol or of the same
// trade type, in history order.
func similarTo(record models.TradeRecord, history []models.TradeRecord) []similarTrade {
	similar := make([]similarTrade, 0, maxSimilarTrades)
	for _, t := range history {
		if len(similar) == maxSimilarTrades {
			break
		}
		if t.ID == record.ID {
			continue
		}
		if t.Symbol != record.Symbol && t.TradeType != record.TradeType {
			continue
		}
		similar = append(similar, similarTrade{
			Symbol:     t.Symbol,
			TradeType:  t.TradeType,
			ProfitLoss: t.ProfitLoss,
			Status:     t.Status,
		})
	}
	return similar
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// indianDate renders day/month/year without padding.
func indianDate(t models.TradeRecord, exit bool) string {
	if exit {
		if t.ExitDate == nil {
			return "Still open"
		}
		return t.ExitDate.Format("2/1/2006")
	}
	return t.EntryDate.Format("2/1/2006")
}

// BuildPrompt renders the analyst prompt for record with the owner's other
// trades as context.
func BuildPrompt(record models.TradeRecord, history []models.TradeRecord) string {
	exitPrice := "Not exited yet"
	if record.ExitPrice != nil {
		exitPrice = num(*record.ExitPrice)
	}
	emotion := string(record.Emotion)
	if emotion == "" {
		emotion = "Not specified"
	}
	notes := record.Notes
	if notes == "" {
		notes = "No notes"
	}
	tags := strings.Join(record.Tags, ", ")
	if tags == "" {
		tags = "None"
	}

	stats := statsOf(history)
	similar := "None"
	if s := similarTo(record, history); len(s) > 0 {
		b, _ := json.MarshalIndent(s, "", "  ")
		similar = string(b)
	}

	var b strings.Builder
	b.WriteString("You are an expert Indian stock market trading analyst. Analyze the following trade and provide comprehensive insights.\n\n")
	b.WriteString("TRADE DETAILS:\n")
	fmt.Fprintf(&b, "- Symbol: %s\n", record.Symbol)
	fmt.Fprintf(&b, "- Exchange: %s\n", record.Exchange)
	fmt.Fprintf(&b, "- Trade Type: %s\n", strings.ToUpper(string(record.TradeType)))
	fmt.Fprintf(&b, "- Entry Price: ₹%s\n", num(record.EntryPrice))
	fmt.Fprintf(&b, "- Exit Price: %s\n", exitPrice)
	fmt.Fprintf(&b, "- Quantity: %d shares\n", record.Quantity)
	fmt.Fprintf(&b, "- Entry Date: %s\n", indianDate(record, false))
	fmt.Fprintf(&b, "- Exit Date: %s\n", indianDate(record, true))
	fmt.Fprintf(&b, "- Profit/Loss: ₹%.2f\n", record.ProfitLoss)
	fmt.Fprintf(&b, "- Fees: ₹%s\n", num(record.Fees))
	fmt.Fprintf(&b, "- Emotion: %s\n", emotion)
	fmt.Fprintf(&b, "- Status: %s\n", strings.ToUpper(string(record.Status)))
	fmt.Fprintf(&b, "- Tags: %s\n", tags)
	fmt.Fprintf(&b, "- Notes: %s\n\n", notes)

	b.WriteString("USER'S TRADING STATISTICS:\n")
	fmt.Fprintf(&b, "- Total Closed Trades: %d\n", stats.closed)
	fmt.Fprintf(&b, "- Win Rate: %s%%\n", stats.winRate)
	fmt.Fprintf(&b, "- Total P&L: ₹%.2f\n", stats.total)
	fmt.Fprintf(&b, "- Similar Recent Trades: %s\n\n", similar)

	b.WriteString(responseContract)
	return b.String()
}

const responseContract = `Please provide a comprehensive analysis in the following JSON format (respond ONLY with valid JSON, no additional text):
{
  "summary": "A 2-3 sentence summary of this trade analyzing its performance, entry/exit timing, and key outcomes.",
  "patterns": [
    "Pattern 1: Description of any trading patterns identified",
    "Pattern 2: Description of behavioral patterns",
    "Pattern 3: Any recurring strategies or mistakes"
  ],
  "strengths": [
    "Strength 1: What went well in this trade",
    "Strength 2: Good decision-making or execution",
    "Strength 3: Positive aspects to replicate"
  ],
  "weaknesses": [
    "Weakness 1: Areas that could be improved",
    "Weakness 2: Mistakes or missed opportunities",
    "Weakness 3: What to avoid in future trades"
  ],
  "insights": "A paragraph (3-4 sentences) with actionable insights, lessons learned, and recommendations for future similar trades. Be specific and practical."
}

Important Guidelines:
- Focus on Indian stock market context (NSE/BSE)
- Be constructive and actionable
- If trade is still open, focus on entry analysis and management
- Compare with user's historical performance when relevant
- Consider the emotion and psychological aspects
- Keep responses concise but insightful
- Use Indian Rupee (₹) for all monetary values

Respond with ONLY the JSON object, no markdown, no code blocks, just the raw JSON.`

var (
	fenceJSON = regexp.MustCompile("```json\n?")
	fence     = regexp.MustCompile("```\n?")
	object    = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseAnalysis extracts the JSON object from a model reply. Replies that
// cannot be decoded fall back to a summary cut from the raw text. Missing
// fields are filled with defaults, so the result is always complete.
func ParseAnalysis(text string) (*Analysis, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = fence.ReplaceAllString(fenceJSON.ReplaceAllString(cleaned, ""), "")
	cleaned = strings.TrimSpace(cleaned)
	if m := object.FindString(cleaned); m != "" {
		cleaned = m
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		summary := truncateRunes(text, fallbackRunes)
		if summary == "" {
			summary = fallbackSummary
		}
		return fill(&Analysis{Summary: summary, Insights: formatInsights}), false
	}

	a := &Analysis{
		Summary:    stringField(raw["summary"]),
		Patterns:   listField(raw["patterns"]),
		Strengths:  listField(raw["strengths"]),
		Weaknesses: listField(raw["weaknesses"]),
		Insights:   stringField(raw["insights"]),
	}
	return fill(a), true
}

func fill(a *Analysis) *Analysis {
	if a.Summary == "" {
		a.Summary = defaultSummary
	}
	if a.Insights == "" {
		a.Insights = defaultInsights
	}
	if a.Patterns == nil {
		a.Patterns = []string{}
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Weaknesses == nil {
		a.Weaknesses = []string{}
	}
	return a
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// listField keeps the string entries of a JSON array; anything else yields nil.
func listField(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
