// Package grpcserver provides auth, logging and recovery middleware for gRPC
// servers embedding the authentication services. Handlers and service
// registration belong to the embedding server.
package grpcserver

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/avagner/authcore/internal/errs"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (uuid.UUID, error)
}

// AuthUnary returns a unary server interceptor that authenticates requests
// and injects the caller's user id into the context. Full method names listed
// in public skip the check.
func AuthUnary(auth Authenticator, public ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(public))
	for _, m := range public {
		skip[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if _, ok := skip[info.FullMethod]; ok {
			return next(ctx, req)
		}
		tok, err := bearerTokenFromMD(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "no bearer token")
		}
		uid, err := auth.Authenticate(ctx, tok)
		if err != nil {
			return nil, StatusFromError(err)
		}
		return next(WithUserID(ctx, uid), req)
	}
}

// LoggingUnary returns a unary server interceptor for structured logging.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		var remote string
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		// metadata only, payloads never reach the log
		log.Info("grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", remote),
		)
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that recovers from panics.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = status.Error(codes.Internal, "internal")
			}
		}()
		return next(ctx, req)
	}
}

// StatusFromError maps a service error onto a gRPC status via the external
// projection. Messages name the projected kind and nothing else.
func StatusFromError(err error) error {
	public := errs.Public(err)
	switch {
	case public == nil:
		return nil
	case errors.Is(public, errs.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, "invalid argument")
	case errors.Is(public, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(public, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(public, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(public, errs.ErrServiceBusy):
		return status.Error(codes.ResourceExhausted, "service busy")
	case errors.Is(public, errs.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(public, errs.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	default:
		return status.Error(codes.Internal, "internal")
	}
}

// bearerTokenFromMD extracts "authorization: Bearer <token>" metadata.
func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
