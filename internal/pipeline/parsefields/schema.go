package parsefields

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// DraftJSONSchema returns the JSON Schema of a serialized
// PurchaseOrderDraft as a generic map.
func DraftJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number", "minimum": 0}

	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"yarn_description": str,
			"color":            str,
			"count":            map[string]any{"type": []any{"string", "null"}},
			"quantity":         num,
			"rate":             num,
			"taxable_amount":   num,
			"uom":              str,
			"bag_count":        map[string]any{"type": []any{"integer", "null"}, "minimum": 0},
			"gst_percent":      map[string]any{"type": []any{"number", "null"}, "minimum": 0, "maximum": 100},
		},
		"required": []any{"yarn_description", "color", "quantity", "rate", "taxable_amount", "uom"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"po_number":        map[string]any{"type": "string", "minLength": 1},
			"po_date":          str,
			"buyer_name":       map[string]any{"type": "string", "minLength": 2},
			"buyer_address":    str,
			"buyer_email":      map[string]any{"type": "string", "pattern": `^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`},
			"buyer_phone":      str,
			"gst_number":       map[string]any{"type": "string", "pattern": `^[0-9A-Za-z]{15}$`},
			"pan_number":       map[string]any{"type": "string", "pattern": `^[0-9A-Za-z]{10}$`},
			"payment_terms":    str,
			"style_ref_no":     str,
			"delivery_address": str,
			"delivery_date":    str,
			"tax_details": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           map[string]any{"cgst": num, "sgst": num, "igst": num},
				"required":             []any{"cgst", "sgst", "igst"},
			},
			"total_amount":    num,
			"amount_in_words": str,
			"notes":           str,
			"items":           map[string]any{"type": "array", "items": item},
		},
		"required": []any{"tax_details", "items"},
	}
}

var (
	draftSchemaOnce sync.Once
	draftSchema     *jsonschema.Schema
	draftSchemaErr  error
)

func compiledDraftSchema() (*jsonschema.Schema, error) {
	draftSchemaOnce.Do(func() {
		b, err := json.Marshal(DraftJSONSchema())
		if err != nil {
			draftSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("draft.json", bytes.NewReader(b)); err != nil {
			draftSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		draftSchema, draftSchemaErr = compiler.Compile("draft.json")
	})
	return draftSchema, draftSchemaErr
}

// ValidateDraftJSON checks a serialized draft, typically one edited by a
// reviewer, against DraftJSONSchema. Mismatches wrap common.ErrValidation.
func ValidateDraftJSON(data []byte) error {
	schema, err := compiledDraftSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.NewAppError("INVALID_JSON", "draft is not valid JSON", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	if err := schema.Validate(v); err != nil {
		return common.NewAppError("SCHEMA_MISMATCH", "draft does not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}

// DraftViolations lists every leaf schema failure in data as
// "<instance location>: <message>". Invalid JSON is returned as an error.
func DraftViolations(data []byte) ([]string, error) {
	schema, err := compiledDraftSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, common.NewAppError("INVALID_JSON", "draft is not valid JSON", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	err = schema.Validate(v)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []string
	collectLeaves(ve, &out)
	return out, nil
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// DecodeDraft validates data and decodes it into a draft.
func DecodeDraft(data []byte) (*entity.PurchaseOrderDraft, error) {
	if err := ValidateDraftJSON(data); err != nil {
		return nil, err
	}
	d := entity.NewPurchaseOrderDraft()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, common.NewAppError("INVALID_JSON", "decode draft", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	if d.Items == nil {
		d.Items = []entity.LineItem{}
	}
	return d, nil
}
