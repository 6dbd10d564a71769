package entity

// PurchaseOrderDraft is the best-effort structured reading of a purchase
// order. Every field is optional; a human reviews it before submission.
type PurchaseOrderDraft struct {
	PONumber        string     `json:"po_number,omitempty"`
	PODate          string     `json:"po_date,omitempty"`
	BuyerName       string     `json:"buyer_name,omitempty"`
	BuyerAddress    string     `json:"buyer_address,omitempty"`
	BuyerEmail      string     `json:"buyer_email,omitempty"`
	BuyerPhone      string     `json:"buyer_phone,omitempty"`
	GSTNumber       string     `json:"gst_number,omitempty"`
	PANNumber       string     `json:"pan_number,omitempty"`
	PaymentTerms    string     `json:"payment_terms,omitempty"`
	StyleRefNo      string     `json:"style_ref_no,omitempty"`
	DeliveryAddress string     `json:"delivery_address,omitempty"`
	DeliveryDate    string     `json:"delivery_date,omitempty"`
	TaxDetails      TaxDetails `json:"tax_details"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	AmountInWords   string     `json:"amount_in_words,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Items           []LineItem `json:"items"`
}

// TaxDetails is always present; missing components are zero.
type TaxDetails struct {
	CGST float64 `json:"cgst"`
	SGST float64 `json:"sgst"`
	IGST float64 `json:"igst"`
}

// LineItem is one yarn line of a purchase order.
type LineItem struct {
	YarnDescription string   `json:"yarn_description"`
	Color           string   `json:"color"`
	Count           *string  `json:"count"`
	Quantity        float64  `json:"quantity"`
	Rate            float64  `json:"rate"`
	TaxableAmount   float64  `json:"taxable_amount"`
	UOM             string   `json:"uom"`
	BagCount        *int     `json:"bag_count"`
	GSTPercent      *float64 `json:"gst_percent"`
}

// NewPurchaseOrderDraft returns an empty draft with a non-nil item list.
func NewPurchaseOrderDraft() *PurchaseOrderDraft {
	return &PurchaseOrderDraft{Items: []LineItem{}}
}
