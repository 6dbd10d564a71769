package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "poextract.v1.ExtractionService"

// Full method names.
const (
	ExtractMethod       = "/" + ServiceName + "/Extract"
	RecognizeTextMethod = "/" + ServiceName + "/RecognizeText"
	ValidateDraftMethod = "/" + ServiceName + "/ValidateDraft"
	GetJobMethod        = "/" + ServiceName + "/GetJob"
	ExportJobsMethod    = "/" + ServiceName + "/ExportJobs"
)

// Request metadata keys.
const (
	MDMediaType = "x-media-type"
	MDFilename  = "x-filename"
	MDLanguage  = "x-language"
	MDForceOCR  = "x-force-ocr"
	MDRequestID = "x-request-id"
)

// ExtractionServer is the server side of poextract.v1.ExtractionService.
// Messages are well-known types so no generated code is needed.
type ExtractionServer interface {
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	RecognizeText(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ValidateDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ExportJobs(context.Context, *wrapperspb.Int32Value) (*wrapperspb.BytesValue, error)
}

// ExtractionServiceDesc describes the service for grpc.Server.RegisterService.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Extract", ExtractMethod, ExtractionServer.Extract),
		unary("RecognizeText", RecognizeTextMethod, ExtractionServer.RecognizeText),
		unary("ValidateDraft", ValidateDraftMethod, ExtractionServer.ValidateDraft),
		unary("GetJob", GetJobMethod, ExtractionServer.GetJob),
		unary("ExportJobs", ExportJobsMethod, ExtractionServer.ExportJobs),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poextract/v1/extraction.proto",
}

// RegisterExtractionServer registers srv on s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](name, fullMethod string, call func(ExtractionServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ExtractionServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ExtractionServer), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
