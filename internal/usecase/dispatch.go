package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"sheet-qa/internal/domain"
	"sheet-qa/internal/session"
	"sheet-qa/internal/table"
)

const (
	salesColumn      = "Sales Amount"
	productColumn    = "Product Name"
	topProductsLimit = 5
	fallbackReply    = "Sorry, I can't answer that question."
)

// Dispatcher answers canned questions directly from the session table.
type Dispatcher struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewDispatcher uses the default keyword rules when c is nil.
func NewDispatcher(c Classifier, logger *slog.Logger) *Dispatcher {
	if c == nil {
		c = NewKeywordClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{classifier: c, logger: logger}
}

// Answer returns the system reply to question. It reports false, and no
// reply, when there is no table or the question is blank.
func (d *Dispatcher) Answer(question string, t *table.Table) (domain.Message, bool) {
	if t == nil || strings.TrimSpace(question) == "" {
		return domain.Message{}, false
	}
	intent := d.classifier.Classify(question)
	reply, err := d.Reply(intent, t)
	if err != nil {
		d.logger.Warn("query failed, falling back", "intent", intent.String(), "err", err)
		reply = fallbackReply
	}
	return domain.SystemMessage(reply), true
}

// Reply renders the answer for intent. Lookup failures such as a missing
// column are returned as errors.
func (d *Dispatcher) Reply(intent Intent, t *table.Table) (string, error) {
	switch intent {
	case IntentTotalSales:
		sum, err := t.Sum(salesColumn)
		if err != nil {
			return "", err
		}
		return totalSalesReply(sum), nil
	case IntentTopProducts:
		records, err := t.Top(topProductsLimit, salesColumn, productColumn, salesColumn)
		if err != nil {
			return "", err
		}
		return topProductsReply(records), nil
	default:
		return fallbackReply, nil
	}
}

// Dispatch turns a submitted question into session effects: the question is
// recorded as pending and, when answerable, the user/system message pair is
// appended and the pending question cleared.
func (d *Dispatcher) Dispatch(question string, t *table.Table) []session.Effect {
	effects := []session.Effect{session.SetPendingQuestion{Text: question}}
	reply, ok := d.Answer(question, t)
	if !ok {
		return effects
	}
	return append(effects,
		session.AppendMessage{Message: domain.UserMessage(question)},
		session.AppendMessage{Message: reply},
		session.ClearPendingQuestion{},
	)
}

func totalSalesReply(sum float64) string {
	return "The total sales are " + table.FormatNumber(sum)
}

func topProductsReply(records []table.Record) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.String()
	}
	return fmt.Sprintf("Top %d products by revenue: [%s]", topProductsLimit, strings.Join(parts, ", "))
}
