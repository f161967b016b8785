// Package grpcsvc публикует операции корзин и магазинов по gRPC.
package grpcsvc

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	cartsvc "github.com/vladislavdragonenkov/foodcart/internal/service/cart"
	storesvc "github.com/vladislavdragonenkov/foodcart/internal/service/store"
)

// Server реализует CartServiceServer и StoreServiceServer поверх доменных сервисов.
type Server struct {
	carts  *cartsvc.Service
	stores *storesvc.Service
	idem   *idempotency
	logger *log.Entry
}

// ServerOption настраивает Server.
type ServerOption func(*Server)

// WithLogger задаёт логгер транспорта.
func WithLogger(logger *log.Entry) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdempotencyRepository включает кэш ответов для CreateCart, OrderCart и CreateStore.
func WithIdempotencyRepository(repo domain.IdempotencyRepository) ServerOption {
	return func(s *Server) {
		if repo != nil {
			s.idem = &idempotency{repo: repo, now: func() time.Time { return time.Now().UTC() }}
		}
	}
}

// NewServer конструирует транспорт с зависимостями.
func NewServer(carts *cartsvc.Service, stores *storesvc.Service, opts ...ServerOption) *Server {
	s := &Server{
		carts:  carts,
		stores: stores,
		logger: log.WithField("component", "grpc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idem != nil {
		s.idem.logger = s.logger.WithField("layer", "idempotency")
	}
	return s
}

// Register регистрирует оба сервиса на gRPC-сервере.
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	RegisterCartServiceServer(registrar, s)
	RegisterStoreServiceServer(registrar, s)
}

// CreateCart добавляет первый товар в корзину вызывающего.
func (s *Server) CreateCart(ctx context.Context, req *CreateCartRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, MethodCreateCart, principal, req,
		func() *Empty { return &Empty{} },
		func(ctx context.Context) (*Empty, error) {
			err := s.carts.CreateCart(ctx, cartsvc.CreateCartRequest{
				StoreID:   req.StoreID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
			}, principal)
			if err != nil {
				return nil, toStatus(s.logger, MethodCreateCart, err)
			}
			return &Empty{}, nil
		},
	)
}

func (s *Server) SelectCart(ctx context.Context, _ *SelectCartRequest) (*CartResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.carts.SelectCart(ctx, principal)
	if err != nil {
		return nil, toStatus(s.logger, MethodSelectCart, err)
	}
	return &CartResponse{Cart: toWireCart(view)}, nil
}

func (s *Server) SelectCarts(ctx context.Context, _ *SelectCartsRequest) (*SelectCartsResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.carts.SelectCarts(ctx, principal)
	if err != nil {
		return nil, toStatus(s.logger, MethodSelectCarts, err)
	}
	carts := make([]Cart, 0, len(views))
	for _, view := range views {
		carts = append(carts, toWireCart(view))
	}
	return &SelectCartsResponse{Carts: carts}, nil
}

func (s *Server) AddCartProduct(ctx context.Context, req *CartProductRequest) (*CartProductResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.CartID, req.ProductID); err != nil {
		return nil, err
	}
	view, err := s.carts.AddCartProduct(ctx, req.CartID, req.ProductID, principal)
	if err != nil {
		return nil, toStatus(s.logger, MethodAddCartProduct, err)
	}
	return &CartProductResponse{Item: toWireCartProduct(view)}, nil
}

func (s *Server) SubtractCartProduct(ctx context.Context, req *CartProductRequest) (*CartProductResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.CartID, req.ProductID); err != nil {
		return nil, err
	}
	view, err := s.carts.SubtractCartProduct(ctx, req.CartID, req.ProductID, principal)
	if err != nil {
		return nil, toStatus(s.logger, MethodSubtractCartProduct, err)
	}
	return &CartProductResponse{Item: toWireCartProduct(view)}, nil
}

func (s *Server) DeleteCartProduct(ctx context.Context, req *CartProductRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.CartID, req.ProductID); err != nil {
		return nil, err
	}
	if err := s.carts.DeleteCartProduct(ctx, req.CartID, req.ProductID, principal); err != nil {
		return nil, toStatus(s.logger, MethodDeleteCartProduct, err)
	}
	return &Empty{}, nil
}

func (s *Server) DeleteCart(ctx context.Context, req *DeleteCartRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.CartID); err != nil {
		return nil, err
	}
	if err := s.carts.DeleteCart(ctx, req.CartID, principal); err != nil {
		return nil, toStatus(s.logger, MethodDeleteCart, err)
	}
	return &Empty{}, nil
}

// OrderCart оформляет корзину; повтор с тем же idempotency-key возвращает прежний результат.
func (s *Server) OrderCart(ctx context.Context, req *OrderCartRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.CartID); err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, MethodOrderCart, principal, req,
		func() *Empty { return &Empty{} },
		func(ctx context.Context) (*Empty, error) {
			err := s.carts.OrderCart(ctx, req.CartID, cartsvc.OrderRequest{
				Address: req.Address,
				Phone:   req.Phone,
				Comment: req.Comment,
			}, principal)
			if err != nil {
				return nil, toStatus(s.logger, MethodOrderCart, err)
			}
			return &Empty{}, nil
		},
	)
}

func (s *Server) SelectStores(ctx context.Context, _ *SelectStoresRequest) (*SelectStoresResponse, error) {
	views, err := s.stores.SelectStores(ctx)
	if err != nil {
		return nil, toStatus(s.logger, MethodSelectStores, err)
	}
	stores := make([]Store, 0, len(views))
	for _, view := range views {
		stores = append(stores, toWireStore(view))
	}
	return &SelectStoresResponse{Stores: stores}, nil
}

func (s *Server) SelectStore(ctx context.Context, req *SelectStoreRequest) (*StoreResponse, error) {
	if err := requireIDs(req.StoreID); err != nil {
		return nil, err
	}
	view, err := s.stores.SelectStore(ctx, req.StoreID)
	if err != nil {
		return nil, toStatus(s.logger, MethodSelectStore, err)
	}
	return &StoreResponse{Store: toWireStore(view)}, nil
}

func (s *Server) SelectMyStore(ctx context.Context, _ *SelectMyStoreRequest) (*StoreResponse, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.stores.SelectMyStore(ctx, principal)
	if err != nil {
		return nil, toStatus(s.logger, MethodSelectMyStore, err)
	}
	return &StoreResponse{Store: toWireStore(view)}, nil
}

// CreateStore создаёт магазин вызывающего.
func (s *Server) CreateStore(ctx context.Context, req *CreateStoreRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	return withIdempotency(ctx, s.idem, MethodCreateStore, principal, req,
		func() *Empty { return &Empty{} },
		func(ctx context.Context) (*Empty, error) {
			in := domain.StoreInput{Name: req.Name, Description: req.Description, Address: req.Address}
			if err := s.stores.CreateStore(ctx, in, principal); err != nil {
				return nil, toStatus(s.logger, MethodCreateStore, err)
			}
			return &Empty{}, nil
		},
	)
}

func (s *Server) ModifyStore(ctx context.Context, req *ModifyStoreRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.StoreID); err != nil {
		return nil, err
	}
	in := domain.StoreInput{Name: req.Name, Description: req.Description, Address: req.Address}
	if err := s.stores.ModifyStore(ctx, req.StoreID, in, principal); err != nil {
		return nil, toStatus(s.logger, MethodModifyStore, err)
	}
	return &Empty{}, nil
}

func (s *Server) DeleteStore(ctx context.Context, req *DeleteStoreRequest) (*Empty, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireIDs(req.StoreID); err != nil {
		return nil, err
	}
	if err := s.stores.DeleteStore(ctx, req.StoreID, principal); err != nil {
		return nil, toStatus(s.logger, MethodDeleteStore, err)
	}
	return &Empty{}, nil
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return status.Error(codes.InvalidArgument, "identifier is required")
		}
	}
	return nil
}

var (
	_ CartServiceServer  = (*Server)(nil)
	_ StoreServiceServer = (*Server)(nil)
)
