package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the view service with typed requests.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection to a view service.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req Req, opts ...grpc.CallOption) (Resp, error) {
	var resp Resp
	in, err := toStruct(req)
	if err != nil {
		return resp, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return resp, err
	}
	err = fromStruct(out, &resp)
	return resp, err
}

// ResolveView resolves a stored or inline view.
func (c *Client) ResolveView(ctx context.Context, req ResolveViewRequest, opts ...grpc.CallOption) (ResolveViewResponse, error) {
	return invoke[ResolveViewRequest, ResolveViewResponse](ctx, c.cc, "ResolveView", req, opts...)
}

// SaveView stores a view revision.
func (c *Client) SaveView(ctx context.Context, req SaveViewRequest, opts ...grpc.CallOption) (ViewSummary, error) {
	return invoke[SaveViewRequest, ViewSummary](ctx, c.cc, "SaveView", req, opts...)
}

// ListViews lists the site's views.
func (c *Client) ListViews(ctx context.Context, opts ...grpc.CallOption) (ListViewsResponse, error) {
	return invoke[struct{}, ListViewsResponse](ctx, c.cc, "ListViews", struct{}{}, opts...)
}

// PutRecords stores records.
func (c *Client) PutRecords(ctx context.Context, req PutRecordsRequest, opts ...grpc.CallOption) (PutRecordsResponse, error) {
	return invoke[PutRecordsRequest, PutRecordsResponse](ctx, c.cc, "PutRecords", req, opts...)
}

// DeleteRecords removes records.
func (c *Client) DeleteRecords(ctx context.Context, req DeleteRecordsRequest, opts ...grpc.CallOption) (DeleteRecordsResponse, error) {
	return invoke[DeleteRecordsRequest, DeleteRecordsResponse](ctx, c.cc, "DeleteRecords", req, opts...)
}

// ListFilterValues lists filter panel candidates.
func (c *Client) ListFilterValues(ctx context.Context, req ListFilterValuesRequest, opts ...grpc.CallOption) (ListFilterValuesResponse, error) {
	return invoke[ListFilterValuesRequest, ListFilterValuesResponse](ctx, c.cc, "ListFilterValues", req, opts...)
}
