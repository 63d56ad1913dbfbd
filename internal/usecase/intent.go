package usecase

import "strings"

// Intent is the kind of canned question a user asked.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentTotalSales
	IntentTopProducts
)

func (i Intent) String() string {
	switch i {
	case IntentTotalSales:
		return "total_sales"
	case IntentTopProducts:
		return "top_products"
	default:
		return "unknown"
	}
}

// Classifier maps free question text to an Intent.
type Classifier interface {
	Classify(question string) Intent
}

// KeywordRule matches when the lower-cased question contains Keyword.
type KeywordRule struct {
	Keyword string
	Intent  Intent
}

// DefaultKeywordRules lists the supported questions in priority order.
var DefaultKeywordRules = []KeywordRule{
	{Keyword: "total sales", Intent: IntentTotalSales},
	{Keyword: "top products", Intent: IntentTopProducts},
}

// KeywordClassifier is a case-insensitive substring matcher; the first
// matching rule wins.
type KeywordClassifier struct {
	rules []KeywordRule
}

func NewKeywordClassifier(rules ...KeywordRule) *KeywordClassifier {
	if len(rules) == 0 {
		rules = DefaultKeywordRules
	}
	normalized := make([]KeywordRule, len(rules))
	for i, r := range rules {
		normalized[i] = KeywordRule{Keyword: strings.ToLower(r.Keyword), Intent: r.Intent}
	}
	return &KeywordClassifier{rules: normalized}
}

func (c *KeywordClassifier) Classify(question string) Intent {
	q := strings.ToLower(question)
	for _, r := range c.rules {
		if r.Keyword != "" && strings.Contains(q, r.Keyword) {
			return r.Intent
		}
	}
	return IntentUnknown
}
