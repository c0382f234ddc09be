package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/go-resty/resty/v2"
	"go.uber.org/ratelimit"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// BalanceFetcher returns a wallet's native balance in wei.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}

// DiscordConfig configures the webhook notifier.
type DiscordConfig struct {
	WebhookURL    string
	MentionID     string
	ExplorerURL   string
	Timeout       time.Duration
	Retries       int
	RatePerSecond int
}

// Discord posts a first-buy embed to a Discord webhook.
type Discord struct {
	cfg      DiscordConfig
	client   *resty.Client
	limiter  ratelimit.Limiter
	balances BalanceFetcher
	now      func() time.Time
}

// NewDiscord creates a webhook notifier. balances may be nil.
func NewDiscord(cfg DiscordConfig, balances BalanceFetcher) *Discord {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.ExplorerURL == "" {
		cfg.ExplorerURL = "https://basescan.org"
	}
	cfg.ExplorerURL = strings.TrimRight(cfg.ExplorerURL, "/")

	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}

	d := &Discord{
		cfg:      cfg,
		limiter:  limiter,
		balances: balances,
		now:      time.Now,
	}
	d.client = resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(d.onRetryCondition).
		SetRetryAfter(d.onRetryAfter)
	return d
}

func (d *Discord) Name() string {
	return "discord"
}

// Returns true if request should be retried
func (d *Discord) onRetryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
}

// onRetryAfter honors Retry-After on 429; zero falls back to exponential backoff.
func (d *Discord) onRetryAfter(c *resty.Client, resp *resty.Response) (time.Duration, error) {
	if resp == nil || resp.StatusCode() != http.StatusTooManyRequests {
		return 0, nil
	}
	return parseRetryAfter(resp.Header().Get("Retry-After")), nil
}

// parseRetryAfter reads a seconds value, fractional values included.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func (d *Discord) Notify(ctx context.Context, buy domain.FirstBuy) error {
	if err := d.wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	msg := d.buildMessage(ctx, buy)
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post(d.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned %s: %s", resp.Status(), strings.TrimSpace(string(resp.Body())))
	}
	return nil
}

// wait takes a rate-limiter slot, giving up when ctx is done. A slot taken
// after that is simply not used.
func (d *Discord) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	taken := make(chan struct{})
	go func() {
		d.limiter.Take()
		close(taken)
	}()
	select {
	case <-taken:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type webhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title"`
	URL       string       `json:"url,omitempty"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Footer    *embedFooter `json:"footer,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func (d *Discord) buildMessage(ctx context.Context, buy domain.FirstBuy) webhookMessage {
	tx := buy.Transaction
	subject := buy.Call.Subject
	now := d.now().UTC()

	msg := webhookMessage{
		Embeds: []embed{{
			Title: fmt.Sprintf("`%s` bought their first key", subject),
			URL:   d.cfg.ExplorerURL + "/tx/" + tx.Hash,
			Color: 0x2ecc71,
			Fields: []embedField{
				{Name: "Subject", Value: fmt.Sprintf("[%s](%s/address/%s)", subject, d.cfg.ExplorerURL, subject)},
				{Name: "Transaction", Value: fmt.Sprintf("[%s](%s/tx/%s)", tx.Hash, d.cfg.ExplorerURL, tx.Hash)},
				{Name: "Block", Value: strconv.FormatUint(tx.BlockNumber, 10), Inline: true},
				{Name: "Wallet balance", Value: d.balance(ctx, subject) + " ETH", Inline: true},
			},
			Footer:    &embedFooter{Text: "Posted at " + now.Format(time.RFC1123)},
			Timestamp: now.Format(time.RFC3339),
		}},
	}
	if d.cfg.MentionID != "" {
		msg.Content = fmt.Sprintf("<@%s>", d.cfg.MentionID)
	}
	return msg
}

// balance is best-effort: any failure renders "0".
func (d *Discord) balance(ctx context.Context, address string) string {
	if d.balances == nil {
		return "0"
	}
	wei, err := d.balances.GetBalance(ctx, address)
	if err != nil || wei == nil {
		slog.Warn("balance lookup failed", "address", address, "error", err)
		return "0"
	}
	return FormatEther(wei, 5)
}

// FormatEther renders wei as ether with the given number of decimals.
func FormatEther(wei *big.Int, decimals int) string {
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return ether.Text('f', decimals)
}
