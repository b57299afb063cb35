package guard

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/resource/validator"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryInterceptor guards the gRPC methods listed in methods (full method
// name to policy name). An empty policy only requires authentication.
// Unlisted methods pass through untouched.
func (g *Guard) UnaryInterceptor(methods map[string]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

		policy, guarded := methods[info.FullMethod]
		if !guarded {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenMetadataKey)
			if len(values) > 0 {
				header = values[0]
			}
		}
		if len(header) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		raw, err := validator.BearerToken(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}

		p, err := g.Check(ctx, raw, policy)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrPolicyDenied):
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		case common.IsAuthenticationFailure(err):
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}

		return handler(WithPrincipal(ctx, p), req)
	}
}
