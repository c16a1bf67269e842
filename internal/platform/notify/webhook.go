package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Publish when the delivery queue has no room.
var ErrQueueFull = errors.New("webhook queue full")

const tokenIssuer = "appointment-server"

// DeliveryClaims is the JWT carried in the Authorization header of a signed
// delivery. BodySHA256 binds the token to the request body.
type DeliveryClaims struct {
	Event      string `json:"event"`
	BodySHA256 string `json:"body_sha256"`
	jwt.RegisteredClaims
}

// WebhookOption configures a WebhookPublisher.
type WebhookOption func(*WebhookPublisher)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(p *WebhookPublisher) { p.httpClient = c }
}

// WithSigningSecret enables HS256 signing of every delivery.
func WithSigningSecret(secret string) WebhookOption {
	return func(p *WebhookPublisher) { p.secret = []byte(secret) }
}

func WithMaxAttempts(n int) WebhookOption {
	return func(p *WebhookPublisher) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithQueueSize(n int) WebhookOption {
	return func(p *WebhookPublisher) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithRetryDelays sets the wait before each retry. The last delay repeats.
func WithRetryDelays(d ...time.Duration) WebhookOption {
	return func(p *WebhookPublisher) {
		if len(d) > 0 {
			p.retryDelays = d
		}
	}
}

func WithLogger(l zerolog.Logger) WebhookOption {
	return func(p *WebhookPublisher) { p.logger = l }
}

// WebhookPublisher POSTs envelopes to a single endpoint from a background
// worker. Publish only enqueues; Run performs delivery and retries.
type WebhookPublisher struct {
	endpoint    string
	secret      []byte
	httpClient  *http.Client
	maxAttempts int
	queueSize   int
	retryDelays []time.Duration
	queue       chan Envelope
	logger      zerolog.Logger
	now         func() time.Time
}

// NewWebhookPublisher validates endpoint and returns a publisher with a
// bounded queue. Defaults: 5 attempts, 256 queued envelopes, backoff
// 30s, 1m, 5m, 15m, 1h.
func NewWebhookPublisher(endpoint string, opts ...WebhookOption) (*WebhookPublisher, error) {
	if err := validateWebhookURL(endpoint); err != nil {
		return nil, err
	}
	p := &WebhookPublisher{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 5,
		queueSize:   256,
		retryDelays: []time.Duration{30 * time.Second, time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour},
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	p.queue = make(chan Envelope, p.queueSize)
	return p, nil
}

func validateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// Publish enqueues env without blocking.
func (p *WebhookPublisher) Publish(_ context.Context, env Envelope) error {
	select {
	case p.queue <- env:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s %s", ErrQueueFull, env.Event, env.ResourceID)
	}
}

// Run delivers queued envelopes until ctx is cancelled.
func (p *WebhookPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-p.queue:
			p.deliverWithRetry(ctx, env)
		}
	}
}

func (p *WebhookPublisher) deliverWithRetry(ctx context.Context, env Envelope) {
	for attempt := 1; ; attempt++ {
		err := p.deliver(ctx, env, attempt)
		if err == nil {
			return
		}
		if attempt >= p.maxAttempts {
			p.logger.Error().Err(err).
				Str("event", env.Event).
				Str("resource_id", env.ResourceID).
				Int("attempts", attempt).
				Msg("webhook delivery abandoned")
			return
		}
		delay := p.retryBackoff(attempt)
		p.logger.Warn().Err(err).
			Str("event", env.Event).
			Str("resource_id", env.ResourceID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("webhook delivery failed")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// retryBackoff returns the delay after a failed attempt (1-indexed).
func (p *WebhookPublisher) retryBackoff(attempt int) time.Duration {
	if attempt > len(p.retryDelays) {
		return p.retryDelays[len(p.retryDelays)-1]
	}
	return p.retryDelays[attempt-1]
}

func (p *WebhookPublisher) deliver(ctx context.Context, env Envelope, attempt int) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", env.Event)
	req.Header.Set("X-Delivery-Attempt", strconv.Itoa(attempt))
	if len(p.secret) > 0 {
		token, err := p.sign(env, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	return nil
}

func (p *WebhookPublisher) sign(env Envelope, body []byte) (string, error) {
	now := p.now()
	claims := DeliveryClaims{
		Event:      env.Event,
		BodySHA256: bodyDigest(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   env.ResourceID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign delivery: %w", err)
	}
	return token, nil
}

// VerifyDelivery is the receiver-side counterpart of a signed delivery. A
// service consuming these webhooks passes the request's Authorization header,
// the raw body and the shared NOTIFY_SIGNING_SECRET; it gets the claims back
// only when the token is valid and was issued for exactly that body. The
// publisher itself never calls it.
func VerifyDelivery(authorization string, body []byte, secret string) (*DeliveryClaims, error) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("missing bearer token")
	}
	claims := &DeliveryClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid delivery token: %w", err)
	}
	if claims.BodySHA256 != bodyDigest(body) {
		return nil, fmt.Errorf("delivery body does not match token")
	}
	return claims, nil
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
