package grpcsvc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/foodcart/internal/auth"
	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
	// guardedPrefix: interceptor проверяет только методы foodorder, служебные
	// сервисы вроде grpc.health.v1 доступны без токена.
	guardedPrefix = "/foodorder.v1."
)

// publicMethods доступны без токена.
var publicMethods = map[string]struct{}{
	MethodSelectStores: {},
	MethodSelectStore:  {},
}

// TokenParser проверяет access-токен.
type TokenParser interface {
	Parse(token string) (domain.Principal, error)
}

// UnaryAuthInterceptor достаёт bearer-токен из metadata и кладёт вызывающего в контекст.
func UnaryAuthInterceptor(tokens TokenParser) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, guardedPrefix) {
			return handler(ctx, req)
		}

		token, ok := bearerToken(ctx)
		if !ok {
			if _, public := publicMethods[info.FullMethod]; public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "authorization token is required")
		}

		principal, err := tokens.Parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(auth.WithPrincipal(ctx, principal), req)
	}
}

func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(authorizationHeader)
	if len(values) == 0 {
		return "", false
	}

	value := strings.TrimSpace(values[0])
	if len(value) <= len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearerPrefix):])
	return token, token != ""
}

// principalFrom возвращает вызывающего или Unauthenticated.
func principalFrom(ctx context.Context) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return domain.Principal{}, status.Error(codes.Unauthenticated, "authorization token is required")
	}
	return principal, nil
}
