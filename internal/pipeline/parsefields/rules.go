package parsefields

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// Rule is one independent extraction step: a pattern and a mapper that
// writes the matches into the draft. A rule never reads another rule's
// output, so rules can be added, removed or reordered freely.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// All makes the rule see every non-overlapping match instead of the first.
	All   bool
	Apply func(d *entity.PurchaseOrderDraft, matches [][]string)
}

// Placeholders written into every line item. The source documents do not
// carry these per line; they are kept until line parsing is enriched.
const (
	DefaultUOM             = "KGS"
	DefaultYarnDescription = "Combed Cotton"
)

// AddressCity anchors the buyer-address heuristic. Only this city is
// recognised.
const AddressCity = "TIRUPUR"

// NotesMaxLines caps the lines kept after the "Conditions / remarks" marker.
const NotesMaxLines = 9

// blanks within a line; labels and values must sit on the same line.
const hs = `[^\S\n]*`

var (
	rePONumber = regexp.MustCompile(`([A-Za-z]*)\.?` + hs + `NO\.` + hs + `:` + hs + `([A-Za-z0-9][A-Za-z0-9/\-]*)`)
	rePODate   = regexp.MustCompile(`(?i)\b(?:P\.?` + hs + `O\.?` + hs + `Date|Dated)` + hs + `[:\-]?` + hs +
		`(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[ \-/]*[A-Za-z]{3,9}[ \-/,]*\d{2,4})`)
	reBuyerName = regexp.MustCompile(`(?im)^To` + hs + `[:\-,]` + hs + `([^\n]*)$`)
	reEmail     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	rePhone     = regexp.MustCompile(`(?i)\b(?:Ph(?:one)?|Mob(?:ile)?|Tel(?:ephone)?|Cell)\.?` + hs + `(?:No\.?)?` + hs + `[:\-]?` + hs + `(\+?\d[\d \-]{6,16}\d)`)
	reGST       = regexp.MustCompile(`(?i)\bGST(?:IN)?\.?` + hs + `(?:Reg(?:istration)?\.?` + hs + `)?(?:No\.?|Number|#)?` + hs + `[:\-]?` + hs + `([0-9A-Z]{15})\b`)
	rePAN       = regexp.MustCompile(`(?i)\bPAN\.?` + hs + `(?:No\.?|Number|#)?` + hs + `[:\-]?` + hs + `([0-9A-Z]{10})\b`)
	reAddress   = regexp.MustCompile(`(?im)^(?:[^\n:]*,[^\n:]*\n){0,3}[^\n:]*\b` + AddressCity + `\b[^\n]*`)
	rePayment   = regexp.MustCompile(`(?im)Payment` + hs + `Terms?` + hs + `[:\-]?` + hs + `([^\n]+)$`)
	reStyleRef  = regexp.MustCompile(`(?im)Style` + hs + `(?:Ref(?:erence)?\.?)?` + hs + `(?:No\.?)?` + hs + `[:\-]` + hs + `([^\n]+)$`)
	reDelivAddr = regexp.MustCompile(`(?im)Delivery` + hs + `(?:Address|At|To)` + hs + `[:\-]?` + hs + `([^\n]+)$`)
	reDelivDate = regexp.MustCompile(`(?im)Delivery` + hs + `(?:Date|Schedule|By)` + hs + `[:\-]?` + hs + `([^\n]+)$`)
	reNetAmount = regexp.MustCompile(`(?i)Net` + hs + `Amount` + hs + `(?:\(?(?:Rs\.?|INR|₹)\)?)?` + hs + `[:\-]?` + hs + `(?:Rs\.?|INR|₹)?` + hs + `(\d[\d,]*(?:\.\d+)?)`)
	reInWords   = regexp.MustCompile(`(?i)\bRupees\s+[A-Za-z][A-Za-z\s\-,]*?\s+only\b`)
	reCGST      = regexp.MustCompile(`(?i)\bCGST\b[^\d\n]*?(\d[\d,]*(?:\.\d+)?)`)
	reSGST      = regexp.MustCompile(`(?i)\bSGST\b[^\d\n]*?(\d[\d,]*(?:\.\d+)?)`)
	reIGST      = regexp.MustCompile(`(?i)\bIGST\b[^\d\n]*?(\d[\d,]*(?:\.\d+)?)`)
	reLineItem  = regexp.MustCompile(`([A-Za-z][A-Za-z ]*?)` + hs + `SH` + hs + `No\.?` + hs + `(\d+)[^\S\n]+(\d+)[^\S\n]+(\d+\.\d+)[^\S\n]+(\d+\.\d+)`)
	reNotes     = regexp.MustCompile(`(?is)Conditions` + hs + `/` + hs + `remarks` + hs + `:?(.*)`)

	reAnySpace = regexp.MustCompile(`\s+`)
)

// labels whose "NO. :" belongs to another field.
var notPONumberLabels = map[string]struct{}{
	"GST": {}, "GSTIN": {}, "PAN": {}, "PH": {}, "PHONE": {}, "MOB": {}, "MOBILE": {},
	"TEL": {}, "CELL": {}, "SH": {}, "STYLE": {}, "HSN": {}, "CIN": {}, "TIN": {},
	"VAT": {}, "AC": {}, "ACCOUNT": {}, "IFSC": {},
}

// DefaultRules returns the purchase-order rule set.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "po_number", Pattern: rePONumber, All: true, Apply: applyPONumber},
		{Name: "po_date", Pattern: rePODate, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.PODate })},
		{Name: "buyer_name", Pattern: reBuyerName, Apply: applyBuyerName},
		{Name: "buyer_email", Pattern: reEmail, Apply: func(d *entity.PurchaseOrderDraft, m [][]string) { d.BuyerEmail = m[0][0] }},
		{Name: "buyer_phone", Pattern: rePhone, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.BuyerPhone })},
		{Name: "gst_number", Pattern: reGST, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.GSTNumber })},
		{Name: "pan_number", Pattern: rePAN, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.PANNumber })},
		{Name: "buyer_address", Pattern: reAddress, Apply: applyAddress},
		{Name: "payment_terms", Pattern: rePayment, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.PaymentTerms })},
		{Name: "style_ref_no", Pattern: reStyleRef, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.StyleRefNo })},
		{Name: "delivery_address", Pattern: reDelivAddr, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.DeliveryAddress })},
		{Name: "delivery_date", Pattern: reDelivDate, Apply: setString(func(d *entity.PurchaseOrderDraft) *string { return &d.DeliveryDate })},
		{Name: "total_amount", Pattern: reNetAmount, Apply: applyTotal},
		{Name: "amount_in_words", Pattern: reInWords, Apply: func(d *entity.PurchaseOrderDraft, m [][]string) {
			d.AmountInWords = reAnySpace.ReplaceAllString(strings.TrimSpace(m[0][0]), " ")
		}},
		{Name: "cgst", Pattern: reCGST, Apply: setNumber(func(d *entity.PurchaseOrderDraft) *float64 { return &d.TaxDetails.CGST })},
		{Name: "sgst", Pattern: reSGST, Apply: setNumber(func(d *entity.PurchaseOrderDraft) *float64 { return &d.TaxDetails.SGST })},
		{Name: "igst", Pattern: reIGST, Apply: setNumber(func(d *entity.PurchaseOrderDraft) *float64 { return &d.TaxDetails.IGST })},
		{Name: "items", Pattern: reLineItem, All: true, Apply: applyLineItems},
		{Name: "notes", Pattern: reNotes, Apply: applyNotes},
	}
}

// setString stores the first capture group, trimmed, when non-empty.
func setString(field func(d *entity.PurchaseOrderDraft) *string) func(*entity.PurchaseOrderDraft, [][]string) {
	return func(d *entity.PurchaseOrderDraft, m [][]string) {
		if len(m[0]) < 2 {
			return
		}
		if v := strings.TrimSpace(m[0][1]); v != "" {
			*field(d) = v
		}
	}
}

// setNumber stores the first capture group as a number; unparsable values
// leave the field untouched.
func setNumber(field func(d *entity.PurchaseOrderDraft) *float64) func(*entity.PurchaseOrderDraft, [][]string) {
	return func(d *entity.PurchaseOrderDraft, m [][]string) {
		if len(m[0]) < 2 {
			return
		}
		if f, ok := parseAmount(m[0][1]); ok {
			*field(d) = f
		}
	}
}

func applyPONumber(d *entity.PurchaseOrderDraft, matches [][]string) {
	for _, m := range matches {
		if _, skip := notPONumberLabels[strings.ToUpper(m[1])]; skip {
			continue
		}
		d.PONumber = m[2]
		return
	}
}

func applyBuyerName(d *entity.PurchaseOrderDraft, m [][]string) {
	v := strings.TrimLeftFunc(m[0][1], func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > 1 {
		d.BuyerName = v
	}
}

func applyAddress(d *entity.PurchaseOrderDraft, m [][]string) {
	var parts []string
	for _, line := range strings.Split(m[0][0], "\n") {
		line = strings.Trim(strings.TrimSpace(line), ",")
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) > 0 {
		d.BuyerAddress = strings.Join(parts, ", ")
	}
}

func applyTotal(d *entity.PurchaseOrderDraft, m [][]string) {
	if f, ok := parseAmount(m[0][1]); ok {
		d.TotalAmount = &f
	}
}

func applyLineItems(d *entity.PurchaseOrderDraft, matches [][]string) {
	for _, m := range matches {
		qty, _ := strconv.ParseFloat(m[3], 64)
		rate, _ := strconv.ParseFloat(m[4], 64)
		taxable, _ := strconv.ParseFloat(m[5], 64)
		d.Items = append(d.Items, entity.LineItem{
			YarnDescription: DefaultYarnDescription,
			Color:           strings.TrimSpace(m[1]) + " SH No. " + m[2],
			Quantity:        qty,
			Rate:            rate,
			TaxableAmount:   taxable,
			UOM:             DefaultUOM,
			// TODO: read count, bag count and GST percent once the column
			// layout of the line table is known.
		})
	}
}

func applyNotes(d *entity.PurchaseOrderDraft, m [][]string) {
	var lines []string
	for _, line := range strings.Split(m[0][1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == NotesMaxLines {
			break
		}
	}
	if len(lines) > 0 {
		d.Notes = strings.Join(lines, "\n")
	}
}

// parseAmount parses a digit-grouped number ("1,23,456.50").
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
