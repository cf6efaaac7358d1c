package ingest

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func closedPort(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	if err := lis.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return addr
}

func TestSubscriberStartUnreachableBroker(t *testing.T) {
	s := NewSubscriber(SubscriberConfig{
		Broker:   "tcp://" + closedPort(t),
		Topic:    "capteurs/qualite_air",
		ClientID: "envmon-test",
	}, &recordingHandler{}, nil)
	s.connectTimeout = 300 * time.Millisecond
	defer s.Stop()

	start := time.Now()
	err := s.Start(context.Background())
	if !errors.Is(err, ErrBrokerUnreachable) {
		t.Fatalf("Start() error = %v, want ErrBrokerUnreachable", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Start() took %v, should give up after the connect timeout", elapsed)
	}
}
