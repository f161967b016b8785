package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// Полные имена методов сервиса.
const (
	CartServiceName  = schemaPackage + ".CartService"
	StoreServiceName = schemaPackage + ".StoreService"

	MethodCreateCart          = "/" + CartServiceName + "/CreateCart"
	MethodSelectCart          = "/" + CartServiceName + "/SelectCart"
	MethodSelectCarts         = "/" + CartServiceName + "/SelectCarts"
	MethodAddCartProduct      = "/" + CartServiceName + "/AddCartProduct"
	MethodSubtractCartProduct = "/" + CartServiceName + "/SubtractCartProduct"
	MethodDeleteCartProduct   = "/" + CartServiceName + "/DeleteCartProduct"
	MethodDeleteCart          = "/" + CartServiceName + "/DeleteCart"
	MethodOrderCart           = "/" + CartServiceName + "/OrderCart"

	MethodSelectStores  = "/" + StoreServiceName + "/SelectStores"
	MethodSelectStore   = "/" + StoreServiceName + "/SelectStore"
	MethodSelectMyStore = "/" + StoreServiceName + "/SelectMyStore"
	MethodCreateStore   = "/" + StoreServiceName + "/CreateStore"
	MethodModifyStore   = "/" + StoreServiceName + "/ModifyStore"
	MethodDeleteStore   = "/" + StoreServiceName + "/DeleteStore"
)

// CartServiceServer: серверная сторона CartService.
type CartServiceServer interface {
	CreateCart(context.Context, *CreateCartRequest) (*Empty, error)
	SelectCart(context.Context, *SelectCartRequest) (*CartResponse, error)
	SelectCarts(context.Context, *SelectCartsRequest) (*SelectCartsResponse, error)
	AddCartProduct(context.Context, *CartProductRequest) (*CartProductResponse, error)
	SubtractCartProduct(context.Context, *CartProductRequest) (*CartProductResponse, error)
	DeleteCartProduct(context.Context, *CartProductRequest) (*Empty, error)
	DeleteCart(context.Context, *DeleteCartRequest) (*Empty, error)
	OrderCart(context.Context, *OrderCartRequest) (*Empty, error)
}

// StoreServiceServer: серверная сторона StoreService.
type StoreServiceServer interface {
	SelectStores(context.Context, *SelectStoresRequest) (*SelectStoresResponse, error)
	SelectStore(context.Context, *SelectStoreRequest) (*StoreResponse, error)
	SelectMyStore(context.Context, *SelectMyStoreRequest) (*StoreResponse, error)
	CreateStore(context.Context, *CreateStoreRequest) (*Empty, error)
	ModifyStore(context.Context, *ModifyStoreRequest) (*Empty, error)
	DeleteStore(context.Context, *DeleteStoreRequest) (*Empty, error)
}

// unaryHandler строит grpc.MethodHandler: запрос декодируется стандартным
// proto-кодеком в сообщение схемы foodorder.v1 и переводится в Req, ответ
// уходит обратно как proto-сообщение.
func unaryHandler[S any, Req any, Resp any, PReq interface {
	*Req
	wireMessage
}, PResp interface {
	*Resp
	wireMessage
}](fullMethod string, call func(S, context.Context, PReq) (PResp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newProto(PReq(new(Req)))
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			msg, ok := req.(proto.Message)
			if !ok {
				return nil, status.Errorf(codes.Internal, "unexpected request type %T", req)
			}
			typed := PReq(new(Req))
			if err := fromProto(typed, msg); err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			resp, err := call(srv.(S), ctx, typed)
			if err != nil {
				return nil, err
			}
			return toProto(resp), nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

// CartServiceDesc описывает CartService для grpc.Server.
var CartServiceDesc = grpc.ServiceDesc{
	ServiceName: CartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateCart", Handler: unaryHandler(MethodCreateCart, CartServiceServer.CreateCart)},
		{MethodName: "SelectCart", Handler: unaryHandler(MethodSelectCart, CartServiceServer.SelectCart)},
		{MethodName: "SelectCarts", Handler: unaryHandler(MethodSelectCarts, CartServiceServer.SelectCarts)},
		{MethodName: "AddCartProduct", Handler: unaryHandler(MethodAddCartProduct, CartServiceServer.AddCartProduct)},
		{MethodName: "SubtractCartProduct", Handler: unaryHandler(MethodSubtractCartProduct, CartServiceServer.SubtractCartProduct)},
		{MethodName: "DeleteCartProduct", Handler: unaryHandler(MethodDeleteCartProduct, CartServiceServer.DeleteCartProduct)},
		{MethodName: "DeleteCart", Handler: unaryHandler(MethodDeleteCart, CartServiceServer.DeleteCart)},
		{MethodName: "OrderCart", Handler: unaryHandler(MethodOrderCart, CartServiceServer.OrderCart)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: SchemaFile,
}

// StoreServiceDesc описывает StoreService для grpc.Server.
var StoreServiceDesc = grpc.ServiceDesc{
	ServiceName: StoreServiceName,
	HandlerType: (*StoreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SelectStores", Handler: unaryHandler(MethodSelectStores, StoreServiceServer.SelectStores)},
		{MethodName: "SelectStore", Handler: unaryHandler(MethodSelectStore, StoreServiceServer.SelectStore)},
		{MethodName: "SelectMyStore", Handler: unaryHandler(MethodSelectMyStore, StoreServiceServer.SelectMyStore)},
		{MethodName: "CreateStore", Handler: unaryHandler(MethodCreateStore, StoreServiceServer.CreateStore)},
		{MethodName: "ModifyStore", Handler: unaryHandler(MethodModifyStore, StoreServiceServer.ModifyStore)},
		{MethodName: "DeleteStore", Handler: unaryHandler(MethodDeleteStore, StoreServiceServer.DeleteStore)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: SchemaFile,
}

// RegisterCartServiceServer регистрирует реализацию CartService.
func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&CartServiceDesc, srv)
}

// RegisterStoreServiceServer регистрирует реализацию StoreService.
func RegisterStoreServiceServer(s grpc.ServiceRegistrar, srv StoreServiceServer) {
	s.RegisterService(&StoreServiceDesc, srv)
}
