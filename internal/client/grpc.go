package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/krushilnaik/constructum-mk2/internal/layout"
)

// schedulerService is the full name of the gRPC scheduling service.
const schedulerService = "constructum.v1.Scheduler"

// GRPCClient implements Scheduler over gRPC. Requests and responses are
// google.protobuf.Struct documents with the same shape as the HTTP API.
type GRPCClient struct {
	conn  *grpc.ClientConn
	token string
	actor string
}

var _ Scheduler = (*GRPCClient)(nil)

// NewGRPCClient connects to the given gRPC address and returns a client.
func NewGRPCClient(addr, token, actor string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn, token: token, actor: actor}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.invoke(ctx, "Health", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *GRPCClient) PreviewCascade(ctx context.Context, taskID string, req *DatesRequest) (*MoveResult, error) {
	in := struct {
		TaskID string `json:"task_id"`
		*DatesRequest
	}{taskID, req}
	var res MoveResult
	if err := c.invoke(ctx, "PreviewCascade", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// layoutRequest omits collapsed when nil so the server applies the saved view.
type layoutRequest struct {
	ProjectID string    `json:"project_id"`
	Collapsed *[]string `json:"collapsed,omitempty"`
}

func newLayoutRequest(projectID string, collapsed []string) layoutRequest {
	req := layoutRequest{ProjectID: projectID}
	if collapsed != nil {
		req.Collapsed = &collapsed
	}
	return req
}

func (c *GRPCClient) Rows(ctx context.Context, projectID string, collapsed []string) (*layout.Chart, error) {
	var chart layout.Chart
	if err := c.invoke(ctx, "Rows", newLayoutRequest(projectID, collapsed), &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

func (c *GRPCClient) Connectors(ctx context.Context, projectID string, collapsed []string) (*ConnectorsResponse, error) {
	var resp ConnectorsResponse
	if err := c.invoke(ctx, "Connectors", newLayoutRequest(projectID, collapsed), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// invoke calls a scheduler method, converting in and out through their JSON
// form.
func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	req, err := toStruct(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	var kv []string
	if c.token != "" {
		kv = append(kv, "authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		kv = append(kv, strings.ToLower(HeaderActor), c.actor)
	}
	if len(kv) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, kv...)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+schedulerService+"/"+method, req, resp); err != nil {
		return err
	}
	data, err := protojson.Marshal(resp)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}
