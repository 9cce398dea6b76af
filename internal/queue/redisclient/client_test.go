package redisclient

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestClient_PingAndClose(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	addr := mr.Addr()
	c := New(Config{Addr: addr})

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
	if err := c.Probe(context.Background()); err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if c.Raw() == nil {
		t.Fatalf("expected raw client")
	}

	mr.Close()

	err = c.Ping(context.Background())
	if err == nil {
		t.Fatalf("expected ping to fail once redis is gone")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Fatalf("error should name the address, got %v", err)
	}
	_ = c.Close()
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:0"})
	defer c.Close()

	if c.timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v", c.timeout)
	}
	if got := c.Raw().Options().ReadTimeout; got != defaultTimeout {
		t.Fatalf("read timeout not applied: %v", got)
	}

	c2 := New(Config{Addr: "127.0.0.1:0", Timeout: time.Second})
	defer c2.Close()
	if c2.Raw().Options().DialTimeout != time.Second {
		t.Fatalf("custom timeout not applied")
	}
}
