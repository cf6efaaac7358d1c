package probe

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

type switchPinger struct {
	down atomic.Bool
}

func (p *switchPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("database is locked")
	}
	return nil
}

func startServer(t *testing.T, db Pinger) (*Server, func(context.Context) error) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(db, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	check := func(ctx context.Context) error {
		return CheckAddr(ctx, "passthrough:///bufnet", ServiceName, dialer)
	}
	return srv, check
}

func TestHealthFollowsDatabase(t *testing.T) {
	req := require.New(t)
	db := &switchPinger{}
	srv, check := startServer(t, db)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req.ErrorIs(check(ctx), errNotServing, "not serving before the first check")

	req.True(srv.Check(ctx))
	req.NoError(check(ctx))

	db.down.Store(true)
	req.False(srv.Check(ctx))
	req.ErrorIs(check(ctx), errNotServing)

	db.down.Store(false)
	req.True(srv.Check(ctx))
	req.NoError(check(ctx))
}

func TestWatchChecksImmediately(t *testing.T) {
	srv, check := startServer(t, &switchPinger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Watch(ctx, time.Hour)
	require.NoError(t, check(ctx))
}
