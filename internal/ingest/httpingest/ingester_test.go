package httpingest

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"segstore/internal/flush"
	"segstore/internal/keytype"
	"segstore/internal/read"
	"segstore/internal/store/memory"
)

func newTestIngester(t *testing.T) (*Ingester, func()) {
	t.Helper()
	st := memory.New(memory.Config{})
	protocol := &flush.Protocol{Store: st, KeyType: keytype.String{}}
	ing := New(Config{Addr: "127.0.0.1:0"}, protocol, keytype.String{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ing.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for ing.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if ing.Addr() == nil {
		t.Fatal("http ingester never started listening")
	}

	return ing, func() {
		cancel()
		<-done
	}
}

func TestPushFlushesRows(t *testing.T) {
	ing, stop := newTestIngester(t)
	defer stop()

	body := `{"partition":"p0","segment":"s0","rows":[
		{"key":"R1","columns":{"value":"v1"}},
		{"key":"R2","columns":{"value":"v2"}}
	]}`

	resp, err := http.Post("http://"+ing.Addr().String()+"/push", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	var keys []string
	for row, err := range read.Stream(context.Background(), ing.protocol.Store, "p0", "s0", []string{"value"}) {
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		keys = append(keys, string(row.Key))
	}
	if len(keys) != 2 || keys[0] != "R1" || keys[1] != "R2" {
		t.Fatalf("expected rows R1,R2 in order, got %v", keys)
	}
}

func TestPushEmptyRowsReturnsNoContent(t *testing.T) {
	ing, stop := newTestIngester(t)
	defer stop()

	resp, err := http.Post("http://"+ing.Addr().String()+"/push", "application/json", strings.NewReader(`{"partition":"p0","segment":"s0","rows":[]}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestPushInvalidJSONReturnsBadRequest(t *testing.T) {
	ing, stop := newTestIngester(t)
	defer stop()

	resp, err := http.Post("http://"+ing.Addr().String()+"/push", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReadyEndpoint(t *testing.T) {
	ing, stop := newTestIngester(t)
	defer stop()

	resp, err := http.Get("http://" + ing.Addr().String() + "/ready")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
