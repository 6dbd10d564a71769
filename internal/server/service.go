package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/po-extract/constants"
	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/export"
	processor "github.com/joseph-ayodele/po-extract/internal/pipeline"
	parse "github.com/joseph-ayodele/po-extract/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/po-extract/internal/repository"
)

// Pipeline is the part of processor.Processor the service needs.
type Pipeline interface {
	Extract(ctx context.Context, doc entity.RawDocument, opts processor.Options) (*processor.Result, error)
	RecognizeText(ctx context.Context, doc entity.RawDocument, opts processor.Options) (processor.RecognizedText, error)
}

type ExtractionService struct {
	pipeline       Pipeline
	jobs           repository.ExtractJobRepository // nil when the journal is off
	exporter       *export.Service
	maxUploadBytes int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func NewExtractionService(p Pipeline, jobs repository.ExtractJobRepository, cfg common.ServerConfig, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		pipeline:       p,
		jobs:           jobs,
		exporter:       export.NewService(jobs, logger),
		maxUploadBytes: cfg.MaxUploadBytes,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}
}

// Extract implements ExtractionServer.
func (s *ExtractionService) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc, opts, err := s.document(ctx, req)
	if err != nil {
		return nil, err
	}
	log := common.LoggerFor(ctx, s.logger)
	log.Info("extract.start", "source", doc.Name, "media_type", doc.MediaType, "bytes", len(doc.Data))

	res, err := s.pipeline.Extract(ctx, doc, opts)
	if err != nil {
		log.Error("extract.failed", "source", doc.Name, "err", err)
		return nil, common.ToStatus(err)
	}

	draft, err := toStruct(res.Draft)
	if err != nil {
		return nil, common.InternalErrorf("encode draft: %v", err)
	}
	out := map[string]*structpb.Value{
		"method":   structpb.NewStringValue(res.Text.Method),
		"pages":    structpb.NewNumberValue(float64(res.Text.Pages)),
		"language": structpb.NewStringValue(res.Text.Language),
		"text":     structpb.NewStringValue(res.Text.Text),
		"draft":    structpb.NewStructValue(draft),
	}
	if res.JobID != uuid.Nil {
		out["job_id"] = structpb.NewStringValue(res.JobID.String())
	}
	return &structpb.Struct{Fields: out}, nil
}

// RecognizeText implements ExtractionServer. Nothing is journaled.
func (s *ExtractionService) RecognizeText(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc, opts, err := s.document(ctx, req)
	if err != nil {
		return nil, err
	}
	text, err := s.pipeline.RecognizeText(ctx, doc, opts)
	if err != nil {
		common.LoggerFor(ctx, s.logger).Error("recognize.failed", "source", doc.Name, "err", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(text)
}

// ValidateDraft implements ExtractionServer. Schema violations are
// reported in the response, not as an error.
func (s *ExtractionService) ValidateDraft(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	b, err := req.MarshalJSON()
	if err != nil {
		return nil, common.InvalidArgumentErrorf("draft: %v", err)
	}
	violations, err := parse.DraftViolations(b)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	list := make([]*structpb.Value, 0, len(violations))
	for _, v := range violations {
		list = append(list, structpb.NewStringValue(v))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"valid":      structpb.NewBoolValue(len(violations) == 0),
		"violations": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

// GetJob implements ExtractionServer.
func (s *ExtractionService) GetJob(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.jobs == nil {
		return nil, common.NotFoundError("job journal is disabled")
	}
	id, err := uuid.Parse(strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, common.InvalidArgumentError("job id must be a UUID")
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return jobStruct(job)
}

// ExportJobs implements ExtractionServer. The response holds an XLSX
// workbook of the most recent jobs; a limit <= 0 uses the journal default.
func (s *ExtractionService) ExportJobs(ctx context.Context, req *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error) {
	if s.jobs == nil {
		return nil, common.NotFoundError("job journal is disabled")
	}
	b, err := s.exporter.ExportJobsXLSX(ctx, int(req.GetValue()))
	if err != nil {
		s.logger.Error("export.failed", "err", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *ExtractionService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout > 0 {
		return context.WithTimeout(ctx, s.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// document builds a RawDocument from the request bytes and metadata.
func (s *ExtractionService) document(ctx context.Context, req *wrapperspb.BytesValue) (entity.RawDocument, processor.Options, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	data := req.GetValue()

	v := common.NewValidator().
		Field("document", data, common.Required).
		Field(MDMediaType, first(md, MDMediaType), common.Required)
	if s.maxUploadBytes > 0 {
		v.Field("document", data, common.MaxBytes(s.maxUploadBytes))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return entity.RawDocument{}, processor.Options{}, common.ToStatus(err)
	}

	declared := first(md, MDMediaType)
	mt, ok := constants.ParseMediaType(declared)
	if !ok {
		return entity.RawDocument{}, processor.Options{}, common.ToStatus(common.UnsupportedMediaType(declared))
	}

	opts := processor.Options{Language: first(md, MDLanguage)}
	if f := first(md, MDForceOCR); f != "" {
		force, err := strconv.ParseBool(f)
		if err != nil {
			return entity.RawDocument{}, processor.Options{}, common.InvalidArgumentErrorf("%s must be a boolean", MDForceOCR)
		}
		opts.ForceOCR = force
	}
	return entity.RawDocument{Data: data, MediaType: mt, Name: first(md, MDFilename)}, opts, nil
}

func first(md metadata.MD, key string) string {
	if vs := md.Get(key); len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, fmt.Errorf("decode struct: %w", err)
	}
	return out, nil
}

func jobStruct(j *entity.ExtractJob) (*structpb.Struct, error) {
	m := map[string]any{
		"id":           j.ID.String(),
		"content_hash": j.ContentHash,
		"source_name":  j.SourceName,
		"media_type":   j.MediaType,
		"status":       string(j.Status),
		"started_at":   j.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if j.FinishedAt != nil {
		m["finished_at"] = j.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	if j.Method != nil {
		m["method"] = *j.Method
	}
	if j.Pages != nil {
		m["pages"] = *j.Pages
	}
	if j.Language != nil {
		m["language"] = *j.Language
	}
	if j.ErrorMessage != nil {
		m["error_message"] = *j.ErrorMessage
	}
	if j.OCRText != nil {
		m["ocr_text"] = *j.OCRText
	}
	if len(j.DraftJSON) > 0 {
		var draft map[string]any
		if err := json.Unmarshal(j.DraftJSON, &draft); err == nil {
			m["draft"] = draft
		}
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode job: %v", err)
	}
	return out, nil
}
