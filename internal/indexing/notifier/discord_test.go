package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

type stubBalances struct {
	wei *big.Int
	err error
}

func (s stubBalances) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	return s.wei, s.err
}

func testBuy() domain.FirstBuy {
	return domain.FirstBuy{
		Transaction: &domain.Transaction{Hash: "0xtxhash", BlockNumber: 102, From: "0xabc", Value: new(big.Int)},
		Call:        domain.BuyCall{Subject: "0xabc", Amount: big.NewInt(1)},
	}
}

func TestDiscord_PostsEmbed(t *testing.T) {
	var got webhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wei, _ := new(big.Int).SetString("1234567890000000000", 10)
	d := NewDiscord(DiscordConfig{
		WebhookURL:  server.URL,
		MentionID:   "42",
		ExplorerURL: "https://basescan.org/",
	}, stubBalances{wei: wei})

	if err := d.Notify(context.Background(), testBuy()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Content != "<@42>" {
		t.Errorf("expected mention, got %q", got.Content)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "`0xabc` bought their first key" {
		t.Errorf("unexpected title %q", e.Title)
	}
	if e.URL != "https://basescan.org/tx/0xtxhash" {
		t.Errorf("unexpected url %q", e.URL)
	}

	fields := map[string]string{}
	for _, f := range e.Fields {
		fields[f.Name] = f.Value
	}
	if fields["Wallet balance"] != "1.23457 ETH" {
		t.Errorf("unexpected balance field %q", fields["Wallet balance"])
	}
	if fields["Block"] != "102" {
		t.Errorf("unexpected block field %q", fields["Block"])
	}
	if !strings.Contains(fields["Subject"], "https://basescan.org/address/0xabc") {
		t.Errorf("unexpected subject field %q", fields["Subject"])
	}
}

func TestDiscord_BalanceFailureRendersZero(t *testing.T) {
	d := NewDiscord(DiscordConfig{}, stubBalances{err: errors.New("rpc down")})
	msg := d.buildMessage(context.Background(), testBuy())

	for _, f := range msg.Embeds[0].Fields {
		if f.Name == "Wallet balance" && f.Value != "0 ETH" {
			t.Errorf("expected 0 ETH, got %q", f.Value)
		}
	}
	if msg.Content != "" {
		t.Errorf("expected no mention, got %q", msg.Content)
	}
}

func TestDiscord_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: server.URL, Retries: 2, Timeout: time.Second}, nil)
	if err := d.Notify(context.Background(), testBuy()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDiscord_FailureStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid Form Body"}`))
	}))
	defer server.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: server.URL}, nil)
	if err := d.Notify(context.Background(), testBuy()); err == nil {
		t.Fatal("expected error on 400")
	}
}

func TestDiscord_RateLimitWaitHonoursContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: server.URL, RatePerSecond: 1}, stubBalances{wei: big.NewInt(0)})
	if err := d.Notify(context.Background(), testBuy()); err != nil {
		t.Fatalf("first notify: %v", err)
	}

	// The next slot is a second away; the deadline comes first.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := d.Notify(ctx, testBuy())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Notify blocked for %v past its deadline", elapsed)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 webhook call, got %d", got)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := d.Notify(cancelled, testBuy()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"2":    2 * time.Second,
		"0.5":  500 * time.Millisecond,
		"":     0,
		"soon": 0,
		"-1":   0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatEther(t *testing.T) {
	if got := FormatEther(big.NewInt(0), 5); got != "0.00000" {
		t.Errorf("unexpected %q", got)
	}
	wei, _ := new(big.Int).SetString("2500000000000000000", 10)
	if got := FormatEther(wei, 5); got != "2.50000" {
		t.Errorf("unexpected %q", got)
	}
}
