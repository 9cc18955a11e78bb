package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "engagectl"
	serviceName       = "engagectl.plugin.v1.ActionPlugin"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodListActions = "/" + serviceName + "/ListActions"
	methodExecute     = "/" + serviceName + "/Execute"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ENGAGECTL_PLUGIN",
	MagicCookieValue: "engagectl",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

type ActionDescriptor struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	TimeoutMS   int32  `json:"timeout_ms"`
}

type ListActionsResponse struct {
	Actions []ActionDescriptor `json:"actions"`
}

type ExecuteRequest struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	DryRun bool   `json:"dry_run"`
}

// ExecuteResponse carries action failures in-band; a gRPC error means the
// call itself did not complete.
type ExecuteResponse struct {
	ElapsedMS int64  `json:"elapsed_ms"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Fatal     bool   `json:"fatal,omitempty"`
}

type ActionPluginServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	ListActions(ctx context.Context, in *Empty) (*ListActionsResponse, error)
	Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error)
}

type ActionPluginClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	ListActions(ctx context.Context) (*ListActionsResponse, error)
	Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error)
}

type actionPluginClient struct {
	conn *grpc.ClientConn
}

func NewActionPluginClient(conn *grpc.ClientConn) ActionPluginClient {
	return &actionPluginClient{conn: conn}
}

func (c *actionPluginClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actionPluginClient) ListActions(ctx context.Context) (*ListActionsResponse, error) {
	out := &ListActionsResponse{}
	if err := c.conn.Invoke(ctx, methodListActions, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *actionPluginClient) Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error) {
	out := &ExecuteResponse{}
	if err := c.conn.Invoke(ctx, methodExecute, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler decodes Req and dispatches to call, going through the server
// interceptor when one is installed.
func unaryHandler[Req any, Resp any](method string, call func(context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterActionPluginServer(server grpc.ServiceRegistrar, impl ActionPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ActionPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetMetadata", Handler: unaryHandler(methodGetMetadata, impl.GetMetadata)},
			{MethodName: "ListActions", Handler: unaryHandler(methodListActions, impl.ListActions)},
			{MethodName: "Execute", Handler: unaryHandler(methodExecute, impl.Execute)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/action-plugin-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl ActionPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterActionPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewActionPluginClient(conn), nil
}

func PluginMap(impl ActionPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
