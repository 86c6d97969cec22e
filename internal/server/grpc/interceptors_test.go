package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/avagner/authcore/internal/errs"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

type fakeAuth struct {
	uid uuid.UUID
	err error

	calls     int
	lastToken string
}

var _ Authenticator = (*fakeAuth)(nil)

func (f *fakeAuth) Authenticate(_ context.Context, tokenString string) (uuid.UUID, error) {
	f.calls++
	f.lastToken = tokenString
	return f.uid, f.err
}

func bearerCtx(token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestAuthUnary_InjectsUserID(t *testing.T) {
	t.Parallel()

	uid := uuid.Must(uuid.NewV4())
	auth := &fakeAuth{uid: uid}
	ic := AuthUnary(auth)
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Secrets/Get"}

	h := func(ctx context.Context, req any) (any, error) {
		got, ok := UserIDFromCtx(ctx)
		if !ok || got != uid {
			t.Fatalf("user id not injected: %v %v", got, ok)
		}
		return "ok", nil
	}

	resp, err := ic(bearerCtx("tok-123"), "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(string) != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}
	if auth.calls != 1 || auth.lastToken != "tok-123" {
		t.Fatalf("authenticator saw %q in %d calls", auth.lastToken, auth.calls)
	}
}

func TestAuthUnary_MissingToken(t *testing.T) {
	t.Parallel()

	ic := AuthUnary(&fakeAuth{uid: uuid.Must(uuid.NewV4())})
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Secrets/Get"}
	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	cases := []struct {
		name string
		ctx  context.Context
	}{
		{"no metadata", context.Background()},
		{"no auth md", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x", "y"))},
		{"wrong scheme", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))},
		{"empty bearer", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "))},
	}
	for _, tc := range cases {
		_, err := ic(tc.ctx, "req", info, h)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("%s: got %v, want Unauthenticated", tc.name, err)
		}
	}
}

func TestAuthUnary_BearerIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	uid := uuid.Must(uuid.NewV4())
	auth := &fakeAuth{uid: uid}
	ic := AuthUnary(auth)
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Secrets/Get"}
	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	md := metadata.Pairs("authorization", "BEARER tok-abc")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	if _, err := ic(ctx, "req", info, h); err != nil {
		t.Fatalf("uppercase scheme rejected: %v", err)
	}
	if auth.lastToken != "tok-abc" {
		t.Fatalf("token = %q", auth.lastToken)
	}
}

func TestAuthUnary_RejectedToken(t *testing.T) {
	t.Parallel()

	// The gateway hands out normalized errors, but even a raw internal kind
	// must leave the interceptor as plain Unauthenticated.
	for _, aerr := range []error{errs.ErrUnauthenticated, errs.ErrTokenExpired} {
		ic := AuthUnary(&fakeAuth{err: aerr})
		info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Secrets/Get"}
		h := func(ctx context.Context, req any) (any, error) { return "ok", nil }

		_, err := ic(bearerCtx("bad"), "req", info, h)
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.Unauthenticated {
			t.Fatalf("auth err %v: got %v, want Unauthenticated", aerr, err)
		}
		if st.Message() != "unauthenticated" {
			t.Fatalf("status message leaks detail: %q", st.Message())
		}
	}
}

func TestAuthUnary_PublicMethodSkipsCheck(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{err: errs.ErrUnauthenticated}
	ic := AuthUnary(auth, "/authcore.v1.Auth/Login")
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Login"}

	h := func(ctx context.Context, req any) (any, error) {
		if _, ok := UserIDFromCtx(ctx); ok {
			t.Fatalf("public method must not carry a user id")
		}
		return "ok", nil
	}

	// No metadata at all; must still pass.
	if _, err := ic(context.Background(), "req", info, h); err != nil {
		t.Fatalf("public method blocked: %v", err)
	}
	if auth.calls != 0 {
		t.Fatalf("authenticator consulted for public method")
	}
}

func TestStatusFromError_Mapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{errs.ErrInvalidInput, codes.InvalidArgument},
		{errs.ErrNotFound, codes.NotFound},
		{errs.ErrAlreadyExists, codes.AlreadyExists},
		{errs.ErrRateLimited, codes.ResourceExhausted},
		{errs.ErrServiceBusy, codes.ResourceExhausted},
		{errs.ErrInvalidCredentials, codes.Unauthenticated},
		{errs.ErrUserInactive, codes.Unauthenticated},
		{errs.ErrTokenExpired, codes.Unauthenticated},
		{errs.ErrUnauthenticated, codes.Unauthenticated},
		{errs.ErrCorruptCredential, codes.Internal},
		{errs.ErrAuthenticationFailed, codes.Internal},
		{errors.New("pool exhausted"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(StatusFromError(tc.err)); got != tc.code {
			t.Fatalf("StatusFromError(%v) = %v, want %v", tc.err, got, tc.code)
		}
	}

	if StatusFromError(nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Login"}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Panic"}
	panicH := func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	}

	_, err := ic(context.Background(), "req", info, panicH)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := RecoverUnary(log)

	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Ok"}
	h := func(ctx context.Context, req any) (any, error) { return 42, nil }

	resp, err := ic(context.Background(), "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.(int) != 42 {
		t.Fatalf("resp mismatch: %v", resp)
	}
}

func TestLoggingUnary_DurationReflectsHandlerTime(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	info := &grpc.UnaryServerInfo{FullMethod: "/authcore.v1.Auth/Sleep"}
	h := func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	}

	start := time.Now()
	resp, err := ic(context.Background(), "req", info, h)
	if err != nil || resp.(string) != "done" {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Fatalf("duration should reflect handler time")
	}
}
