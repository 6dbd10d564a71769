package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/po-extract/internal/entity"
)

// Client calls a remote ExtractionService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// DocumentMeta travels as request metadata next to the document bytes.
type DocumentMeta struct {
	MediaType string
	Filename  string
	Language  string
	ForceOCR  bool
}

func (m DocumentMeta) outgoing(ctx context.Context) context.Context {
	kv := []string{MDMediaType, m.MediaType}
	if m.Filename != "" {
		kv = append(kv, MDFilename, m.Filename)
	}
	if m.Language != "" {
		kv = append(kv, MDLanguage, m.Language)
	}
	if m.ForceOCR {
		kv = append(kv, MDForceOCR, strconv.FormatBool(true))
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// ExtractResponse is the decoded Extract reply.
type ExtractResponse struct {
	JobID    string                     `json:"job_id,omitempty"`
	Method   string                     `json:"method"`
	Pages    int                        `json:"pages"`
	Language string                     `json:"language"`
	Text     string                     `json:"text"`
	Draft    *entity.PurchaseOrderDraft `json:"draft"`
}

func (c *Client) Extract(ctx context.Context, data []byte, meta DocumentMeta, opts ...grpc.CallOption) (*ExtractResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(meta.outgoing(ctx), ExtractMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return nil, err
	}
	resp := &ExtractResponse{}
	if err := fromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RecognizeText returns the transcript and how it was obtained.
func (c *Client) RecognizeText(ctx context.Context, data []byte, meta DocumentMeta, opts ...grpc.CallOption) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(meta.outgoing(ctx), RecognizeTextMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// ValidateDraft returns the schema violations of a JSON draft; none means
// it is valid.
func (c *Client) ValidateDraft(ctx context.Context, draftJSON []byte, opts ...grpc.CallOption) ([]string, error) {
	in := &structpb.Struct{}
	if err := in.UnmarshalJSON(draftJSON); err != nil {
		return nil, fmt.Errorf("draft is not a JSON object: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateDraftMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var violations []string
	for _, v := range out.GetFields()["violations"].GetListValue().GetValues() {
		violations = append(violations, v.GetStringValue())
	}
	return violations, nil
}

func (c *Client) GetJob(ctx context.Context, id string, opts ...grpc.CallOption) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetJobMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// ExportJobs returns an XLSX workbook of recent jobs.
func (c *Client) ExportJobs(ctx context.Context, limit int32, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, ExportJobsMethod, wrapperspb.Int32(limit), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

func fromStruct(s *structpb.Struct, v any) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
