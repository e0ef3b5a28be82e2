package bagel

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// gRPC services are declared by hand over the well-known protobuf types, so
// no generated code is needed.

const (
	deliverMethod  = "/bagel.Exchange/Deliver"
	progressMethod = "/bagel.Coord/Progress"
	reportMethod   = "/bagel.Coord/Report"
)

type exchangeServer interface {
	Deliver(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error)
}

var exchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: "bagel.Exchange",
	HandlerType: (*exchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bagel/rpc.go",
}

func deliverHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(exchangeServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(exchangeServer).Deliver(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

type coordServer interface {
	Progress(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	Report(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

var coordServiceDesc = grpc.ServiceDesc{
	ServiceName: "bagel.Coord",
	HandlerType: (*coordServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Progress", Handler: progressHandler},
		{MethodName: "Report", Handler: reportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bagel/rpc.go",
}

func progressHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(coordServer).Progress(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: progressMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(coordServer).Progress(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func reportHandler(
	srv interface{}, ctx context.Context, dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(coordServer).Report(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: reportMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(coordServer).Report(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func (p Progress) toMap() map[string]interface{} {
	return map[string]interface{}{
		"partition": p.PartitionId,
		"algorithm": p.Algorithm,
		"epoch":     float64(p.Epoch),
		"frontier":  p.Frontier,
		"active":    float64(p.Active),
		"done":      p.Done,
	}
}

func (p Progress) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(p.toMap())
}

func progressFromStruct(s *structpb.Struct) Progress {
	f := s.GetFields()
	return Progress{
		PartitionId: int(f["partition"].GetNumberValue()),
		Algorithm:   f["algorithm"].GetStringValue(),
		Epoch:       uint64(f["epoch"].GetNumberValue()),
		Frontier:    int(f["frontier"].GetNumberValue()),
		Active:      int64(f["active"].GetNumberValue()),
		Done:        f["done"].GetBoolValue(),
	}
}

// progressSnapshot encodes every partition's progress keyed by partition id.
func progressSnapshot(progress map[int]Progress) (*structpb.Struct, error) {
	ids := make([]int, 0, len(progress))
	for id := range progress {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	partitions := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		partitions[strconv.Itoa(id)] = progress[id].toMap()
	}
	return structpb.NewStruct(map[string]interface{}{"partitions": partitions})
}

func progressFromSnapshot(s *structpb.Struct) (map[int]Progress, error) {
	progress := make(map[int]Progress)
	for key, value := range s.GetFields()["partitions"].GetStructValue().GetFields() {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("bad partition key %q: %w", key, err)
		}
		progress[id] = progressFromStruct(value.GetStructValue())
	}
	return progress, nil
}
