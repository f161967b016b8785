package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client: клиент CartService и StoreService поверх стандартного proto-кодека.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх установленного соединения.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// WithToken добавляет bearer-токен в исходящие metadata.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, authorizationHeader, "Bearer "+token)
}

// WithIdempotencyKey добавляет idempotency-key в исходящие metadata.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, IdempotencyKeyHeader, key)
}

func invoke[Resp any, PResp interface {
	*Resp
	wireMessage
}](ctx context.Context, c *Client, method string, req wireMessage, opts ...grpc.CallOption) (PResp, error) {
	resp := PResp(new(Resp))
	out := newProto(resp)
	if err := c.conn.Invoke(ctx, method, toProto(req), out, opts...); err != nil {
		return nil, err
	}
	if err := fromProto(resp, out); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) CreateCart(ctx context.Context, req *CreateCartRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodCreateCart, req, opts...)
}

func (c *Client) SelectCart(ctx context.Context, opts ...grpc.CallOption) (*CartResponse, error) {
	return invoke[CartResponse](ctx, c, MethodSelectCart, &SelectCartRequest{}, opts...)
}

func (c *Client) SelectCarts(ctx context.Context, opts ...grpc.CallOption) (*SelectCartsResponse, error) {
	return invoke[SelectCartsResponse](ctx, c, MethodSelectCarts, &SelectCartsRequest{}, opts...)
}

func (c *Client) AddCartProduct(ctx context.Context, req *CartProductRequest, opts ...grpc.CallOption) (*CartProductResponse, error) {
	return invoke[CartProductResponse](ctx, c, MethodAddCartProduct, req, opts...)
}

func (c *Client) SubtractCartProduct(ctx context.Context, req *CartProductRequest, opts ...grpc.CallOption) (*CartProductResponse, error) {
	return invoke[CartProductResponse](ctx, c, MethodSubtractCartProduct, req, opts...)
}

func (c *Client) DeleteCartProduct(ctx context.Context, req *CartProductRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodDeleteCartProduct, req, opts...)
}

func (c *Client) DeleteCart(ctx context.Context, req *DeleteCartRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodDeleteCart, req, opts...)
}

func (c *Client) OrderCart(ctx context.Context, req *OrderCartRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodOrderCart, req, opts...)
}

func (c *Client) SelectStores(ctx context.Context, opts ...grpc.CallOption) (*SelectStoresResponse, error) {
	return invoke[SelectStoresResponse](ctx, c, MethodSelectStores, &SelectStoresRequest{}, opts...)
}

func (c *Client) SelectStore(ctx context.Context, req *SelectStoreRequest, opts ...grpc.CallOption) (*StoreResponse, error) {
	return invoke[StoreResponse](ctx, c, MethodSelectStore, req, opts...)
}

func (c *Client) SelectMyStore(ctx context.Context, opts ...grpc.CallOption) (*StoreResponse, error) {
	return invoke[StoreResponse](ctx, c, MethodSelectMyStore, &SelectMyStoreRequest{}, opts...)
}

func (c *Client) CreateStore(ctx context.Context, req *CreateStoreRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodCreateStore, req, opts...)
}

func (c *Client) ModifyStore(ctx context.Context, req *ModifyStoreRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodModifyStore, req, opts...)
}

func (c *Client) DeleteStore(ctx context.Context, req *DeleteStoreRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, MethodDeleteStore, req, opts...)
}
