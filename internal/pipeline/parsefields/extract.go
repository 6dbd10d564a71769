package parsefields

import (
	"log/slog"

	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// Extractor maps recognized text to a PurchaseOrderDraft. It is a pure
// function of its input and safe for concurrent use.
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

// NewExtractor returns an Extractor over DefaultRules.
func NewExtractor(logger *slog.Logger) *Extractor {
	return NewExtractorWithRules(DefaultRules(), logger)
}

// NewExtractorWithRules returns an Extractor over a caller-supplied rule set.
func NewExtractorWithRules(rules []Rule, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rules: rules, logger: logger}
}

// ExtractFields never fails: fields that no rule matched stay absent, taxes
// stay 0 and items stays an empty list.
func (e *Extractor) ExtractFields(text string) *entity.PurchaseOrderDraft {
	draft := entity.NewPurchaseOrderDraft()
	cleaned := Clean(text)
	if cleaned == "" {
		return draft
	}
	for _, r := range e.rules {
		e.apply(r, cleaned, draft)
	}
	e.logger.Debug("fields extracted",
		"po_number", draft.PONumber,
		"items", len(draft.Items),
		"text_len", len(cleaned),
	)
	return draft
}

func (e *Extractor) apply(r Rule, text string, draft *entity.PurchaseOrderDraft) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("field rule panicked; field left absent", "rule", r.Name, "panic", rec)
		}
	}()
	var matches [][]string
	if r.All {
		matches = r.Pattern.FindAllStringSubmatch(text, -1)
	} else if m := r.Pattern.FindStringSubmatch(text); m != nil {
		matches = [][]string{m}
	}
	if len(matches) == 0 {
		return
	}
	r.Apply(draft, matches)
}

var defaultExtractor = NewExtractor(nil)

// ExtractFields runs the default rule set.
func ExtractFields(text string) *entity.PurchaseOrderDraft {
	return defaultExtractor.ExtractFields(text)
}
