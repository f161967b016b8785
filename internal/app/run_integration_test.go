package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/vladislavdragonenkov/foodcart/internal/auth"
	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/foodcart/internal/service/grpc"
)

const runTestSecret = "run-test-secret"

// RunSuite поднимает сервис целиком на memory-хранилище с демо-данными и
// ходит в него по настоящему TCP.
type RunSuite struct {
	suite.Suite

	cfg    Config
	cancel context.CancelFunc
	runErr chan error
	conn   *grpc.ClientConn
	client *grpcsvc.Client
	tokens *auth.TokenManager
}

func TestRunSuite(t *testing.T) {
	suite.Run(t, new(RunSuite))
}

func (s *RunSuite) SetupSuite() {
	s.cfg = DefaultConfig()
	s.cfg.GRPCAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(s.T()))
	s.cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(s.T()))
	s.cfg.JWTSecret = runTestSecret
	s.cfg.SeedDemoData = true
	s.cfg.IdempotencyCleanupInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.runErr = make(chan error, 1)
	go func() { s.runErr <- Run(ctx, s.cfg) }()

	conn, err := grpc.NewClient(s.cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)
	s.conn = conn
	s.client = grpcsvc.NewClient(conn)
	s.tokens = auth.NewTokenManager(runTestSecret, time.Minute)

	health := healthpb.NewHealthClient(conn)
	s.Require().Eventually(func() bool {
		resp, err := health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: grpcsvc.CartServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 50*time.Millisecond, "service did not become ready")
}

func (s *RunSuite) TearDownSuite() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.cancel()

	select {
	case err := <-s.runErr:
		s.True(errors.Is(err, context.Canceled), "unexpected Run result: %v", err)
	case <-time.After(10 * time.Second):
		s.Fail("Run did not stop after cancellation")
	}
}

func (s *RunSuite) as(userID string, role domain.Role) context.Context {
	token, _, err := s.tokens.Issue(domain.Principal{UserID: userID, Role: role})
	s.Require().NoError(err)
	return grpcsvc.WithToken(context.Background(), token)
}

func (s *RunSuite) TestStoresArePublic() {
	resp, err := s.client.SelectStores(context.Background())
	s.Require().NoError(err)
	s.Require().Len(resp.Stores, 1)
	s.Equal(DemoStoreID, resp.Stores[0].ID)

	mine, err := s.client.SelectMyStore(s.as(DemoOwnerID, domain.RoleStore))
	s.Require().NoError(err)
	s.Equal(DemoStoreID, mine.Store.ID)
}

func (s *RunSuite) TestCartLifecycle() {
	ctx := s.as(DemoConsumerID, domain.RoleConsumer)

	_, err := s.client.CreateCart(grpcsvc.WithIdempotencyKey(ctx, "run-create-1"), &grpcsvc.CreateCartRequest{
		StoreID:   DemoStoreID,
		ProductID: "demo-bagel",
		Quantity:  2,
	})
	s.Require().NoError(err)

	cart, err := s.client.SelectCart(ctx)
	s.Require().NoError(err)
	s.Equal(int64(700), cart.Cart.TotalPriceMinor)

	_, err = s.client.CreateCart(ctx, &grpcsvc.CreateCartRequest{StoreID: DemoStoreID, ProductID: "demo-coffee", Quantity: 1})
	s.Require().NoError(err)

	item, err := s.client.AddCartProduct(ctx, &grpcsvc.CartProductRequest{CartID: cart.Cart.ID, ProductID: "demo-bagel"})
	s.Require().NoError(err)
	s.Equal(int32(3), item.Item.Quantity)

	_, err = s.client.OrderCart(ctx, &grpcsvc.OrderCartRequest{CartID: cart.Cart.ID, Address: "1 Test street"})
	s.Require().NoError(err)

	carts, err := s.client.SelectCarts(ctx)
	s.Require().NoError(err)
	s.Require().Len(carts.Carts, 1)
	s.Equal(string(domain.CartStatusOrdered), carts.Carts[0].Status)
	s.Equal(int64(3*350+400), carts.Carts[0].TotalPriceMinor)
	s.Require().NotNil(carts.Carts[0].Delivery)

	_, err = s.client.AddCartProduct(ctx, &grpcsvc.CartProductRequest{CartID: cart.Cart.ID, ProductID: "demo-bagel"})
	s.Equal(codes.FailedPrecondition, status.Code(err))

	_, err = s.client.CreateCart(ctx, &grpcsvc.CreateCartRequest{StoreID: DemoStoreID, ProductID: "demo-coffee", Quantity: 1})
	s.Require().NoError(err, "ordered cart frees the slot for a new open cart")

	_, err = s.client.DeleteStore(s.as(DemoOwnerID, domain.RoleStore), &grpcsvc.DeleteStoreRequest{StoreID: DemoStoreID})
	s.Equal(codes.FailedPrecondition, status.Code(err), "store with open carts cannot be deleted")
}

func (s *RunSuite) TestAuthentication() {
	_, err := s.client.SelectCart(context.Background())
	s.Equal(codes.Unauthenticated, status.Code(err))

	other := auth.NewTokenManager("another-secret", time.Minute)
	token, _, err := other.Issue(domain.Principal{UserID: DemoConsumerID, Role: domain.RoleConsumer})
	s.Require().NoError(err)
	_, err = s.client.SelectCart(grpcsvc.WithToken(context.Background(), token))
	s.Equal(codes.Unauthenticated, status.Code(err))
}

func (s *RunSuite) TestReflectionExposesSchema() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := reflectionpb.NewServerReflectionClient(s.conn).ServerReflectionInfo(ctx)
	s.Require().NoError(err)
	defer func() { _ = stream.CloseSend() }()

	s.Require().NoError(stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))
	resp, err := stream.Recv()
	s.Require().NoError(err)
	var services []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		services = append(services, svc.GetName())
	}
	s.Contains(services, grpcsvc.CartServiceName)
	s.Contains(services, grpcsvc.StoreServiceName)

	s.Require().NoError(stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: grpcsvc.CartServiceName},
	}))
	resp, err = stream.Recv()
	s.Require().NoError(err)
	files := resp.GetFileDescriptorResponse().GetFileDescriptorProto()
	s.Require().NotEmpty(files)

	var file descriptorpb.FileDescriptorProto
	s.Require().NoError(proto.Unmarshal(files[0], &file))
	s.Equal(grpcsvc.SchemaFile, file.GetName())
}

func (s *RunSuite) TestMetricsAndHealthEndpoints() {
	base := "http://" + s.cfg.MetricsAddr

	code, body := httpGet(s.T(), base+"/metrics")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "grpc_server_started_total")

	code, body = httpGet(s.T(), base+"/healthz")
	s.Equal(http.StatusOK, code)
	s.Contains(body, `"storage"`)
	s.Contains(body, `"outbox"`)

	resp, err := http.Get(base + "/readyz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	ready, _ := io.ReadAll(resp.Body)
	s.Equal("ready", string(ready))
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error without jwt secret")
	}

	cfg.JWTSecret = "secret"
	cfg.StorageDriver = "invalid-driver"
	err = Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected unsupported storage driver error")
	}
}
