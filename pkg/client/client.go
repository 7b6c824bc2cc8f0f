// Package client implements the request orchestrator: it assembles the
// plaintext request payload, drives seal → transport → open against a
// remote gateway, and maps the decrypted reply into a typed result or a
// typed error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/advatar/zk-llm-gateway-go/pkg/config"
	"github.com/advatar/zk-llm-gateway-go/pkg/envelope"
	"github.com/advatar/zk-llm-gateway-go/pkg/gwerrs"
	"github.com/advatar/zk-llm-gateway-go/pkg/ticket"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

// Structured-log attribute keys used by finish. Kept local rather than in a
// shared logging package: nothing outside this package's call-lifecycle
// logging needs them.
const (
	logKeyTokenClass = "token_class"
	logKeyOutcome    = "outcome"
	logKeyDuration   = "duration"
)

// GatewayClient is the request orchestrator. A single instance may be used
// concurrently by multiple callers provided its HTTP client and ticket
// source are themselves safe for concurrent use (the in-package
// implementations are).
type GatewayClient struct {
	httpClient *http.Client
	url        string
	bearer     string
	timeout    time.Duration
	gatewayPub envelope.GatewayPublicKey
	tickets    ticket.Source
	logger     *slog.Logger
	metrics    *Metrics
	limiter    *rate.Limiter
}

// New builds a GatewayClient from a loaded Config and a ticket source. If
// logger is nil, a no-op logger is used.
func New(cfg *config.Config, tickets ticket.Source, logger *slog.Logger) (*GatewayClient, error) {
	pub, err := envelope.ParseGatewayPublicKeyB64(cfg.Gateway.PublicKeyB64)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &GatewayClient{
		httpClient: &http.Client{},
		url:        cfg.Gateway.URL + cfg.Gateway.Path,
		bearer:     cfg.Gateway.BearerToken,
		timeout:    cfg.Timeouts.Request,
		gatewayPub: pub,
		tickets:    tickets,
		logger:     logger,
	}, nil
}

// SetMetrics attaches prometheus instrumentation. Safe to call once before
// the client is shared across goroutines; not safe to call concurrently
// with Infer/InferWithTicket.
func (c *GatewayClient) SetMetrics(m *Metrics) { c.metrics = m }

// SetRateLimit attaches an optional rate limiter. When set, every call waits
// on it (context-aware) before drawing a ticket, bounding how fast a caller
// can exhaust a finite ticket pool.
func (c *GatewayClient) SetRateLimit(l *rate.Limiter) { c.limiter = l }

// SetHTTPClient overrides the HTTP client used for the transport round-trip,
// e.g. to inject a custom Transport in tests.
func (c *GatewayClient) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// requestPayload is the plaintext object sealed inside the request
// envelope, per §6's wire contract.
type requestPayload struct {
	RequestID   string          `json:"request_id"`
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TokenClass  string          `json:"token_class"`
	Ticket      ticket.Ticket   `json:"ticket"`
}

// Infer pulls a ticket from the configured source for class, then seals,
// submits, and opens one request/response exchange.
func (c *GatewayClient) Infer(ctx context.Context, class tokenclass.Class, upstreamPayload any) (json.RawMessage, error) {
	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	tk, err := c.tickets.NextTicket(ctx, class)
	if err != nil {
		return nil, err
	}

	return c.call(ctx, class, tk, upstreamPayload)
}

// InferWithTicket is identical to Infer, except the caller supplies the
// ticket directly. The ticket's declared class must match the requested
// class, or a ProtocolError is raised before anything is sent.
func (c *GatewayClient) InferWithTicket(ctx context.Context, class tokenclass.Class, tk ticket.Ticket, upstreamPayload any) (json.RawMessage, error) {
	declared, err := tk.Class()
	if err != nil || !declared.Equal(class) {
		return nil, gwerrs.Protocol("ticket token_class does not match requested class")
	}

	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	return c.call(ctx, class, tk, upstreamPayload)
}

func (c *GatewayClient) waitForRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *GatewayClient) call(ctx context.Context, class tokenclass.Class, tk ticket.Ticket, upstreamPayload any) (json.RawMessage, error) {
	start := time.Now()

	plaintext, err := buildRequestPayload(class, tk, upstreamPayload)
	if err != nil {
		return nil, err
	}

	env, state, err := envelope.Seal(plaintext, class, c.gatewayPub)
	if err != nil {
		c.finish(class, start, OutcomeCrypto)
		return nil, err
	}
	defer state.Zero()

	c.metrics.recordSent(len(env.CiphertextB64))

	reply, status, timedOut, err := c.transport(ctx, env)
	if err != nil {
		outcome := OutcomeHTTP
		if timedOut {
			outcome = OutcomeTimeout
		}
		c.finish(class, start, outcome)
		return nil, err
	}

	c.metrics.recordReceived(len(reply.CiphertextB64))

	decrypted, err := envelope.Open(reply, state)
	if err != nil {
		c.finish(class, start, OutcomeCrypto)
		return nil, err
	}

	result, err := interpretReply(decrypted, status)
	if err != nil {
		c.finish(class, start, outcomeFor(err))
		return nil, err
	}

	c.finish(class, start, OutcomeOK)
	return result, nil
}

func (c *GatewayClient) finish(class tokenclass.Class, start time.Time, outcome string) {
	elapsed := time.Since(start).Seconds()
	c.metrics.recordCall(outcome, class.String(), elapsed)
	c.logger.Info("infer call complete",
		logKeyTokenClass, class.String(),
		logKeyOutcome, outcome,
		logKeyDuration, elapsed,
	)
}

func outcomeFor(err error) string {
	switch {
	case gwerrs.Is(err, gwerrs.KindGateway):
		return OutcomeGateway
	case gwerrs.Is(err, gwerrs.KindHTTP):
		return OutcomeHTTP
	case gwerrs.Is(err, gwerrs.KindProtocol):
		return OutcomeProtocol
	default:
		return OutcomeProtocol
	}
}

// transport POSTs the sealed envelope and decodes the reply envelope. The
// call is bound to the client's configured timeout, cancelling the
// in-flight request/response on expiry. The returned bool reports whether
// the failure was this client-side timeout expiring, as distinct from any
// other transport error, so the caller can label metrics/logs correctly
// without re-deriving the signal from the wrong context.
func (c *GatewayClient) transport(ctx context.Context, env envelope.Envelope) (envelope.Envelope, int, bool, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return envelope.Envelope{}, 0, false, gwerrs.Protocol(fmt.Sprintf("marshal envelope: %v", err))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return envelope.Envelope{}, 0, false, gwerrs.Protocol(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if c.bearer != "" {
		req.Header.Set("authorization", "Bearer "+c.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			timedOut := ctx.Err() == nil && reqCtx.Err() == context.DeadlineExceeded
			return envelope.Envelope{}, 0, timedOut, gwerrs.Protocol("request timed out or was cancelled")
		}
		return envelope.Envelope{}, 0, false, gwerrs.NewHTTPError(0)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope.Envelope{}, resp.StatusCode, false, gwerrs.Protocol(fmt.Sprintf("read response: %v", err))
	}

	var reply envelope.Envelope
	if err := json.Unmarshal(raw, &reply); err != nil {
		return envelope.Envelope{}, resp.StatusCode, false, gwerrs.Protocol("reply is not a valid envelope")
	}

	return reply, resp.StatusCode, false, nil
}

// buildRequestPayload coerces upstreamPayload into the plaintext request
// object, per §4.5/§6. upstreamPayload is either a chat-style object
// ({model, messages, ...}) or a transport-envelope-style wrapper
// ({path, body: {...}}); anything else is a ProtocolError.
func buildRequestPayload(class tokenclass.Class, tk ticket.Ticket, upstreamPayload any) (requestPayload, error) {
	model, messages, maxTokens, temperature, err := coerceUpstreamPayload(upstreamPayload)
	if err != nil {
		return requestPayload{}, err
	}

	if maxTokens == 0 {
		maxTokens = class.MaxOutputTokensHint()
	}

	return requestPayload{
		RequestID:   uuid.New().String(),
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TokenClass:  class.String(),
		Ticket:      tk,
	}, nil
}

func coerceUpstreamPayload(upstreamPayload any) (model string, messages json.RawMessage, maxTokens int, temperature *float64, err error) {
	raw, err := json.Marshal(upstreamPayload)
	if err != nil {
		return "", nil, 0, nil, gwerrs.Protocol(fmt.Sprintf("marshal upstream payload: %v", err))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", nil, 0, nil, gwerrs.Protocol("upstream payload must be a JSON object")
	}

	// Transport-envelope-style: {path, body: {...}}.
	if bodyRaw, ok := fields["body"]; ok {
		if _, hasPath := fields["path"]; hasPath {
			if err := json.Unmarshal(bodyRaw, &fields); err != nil {
				return "", nil, 0, nil, gwerrs.Protocol("transport-envelope body must be a JSON object")
			}
		}
	}

	modelRaw, hasModel := fields["model"]
	messagesRaw, hasMessages := fields["messages"]
	if !hasModel || !hasMessages {
		return "", nil, 0, nil, gwerrs.Protocol("upstream payload missing model or messages")
	}
	if err := json.Unmarshal(modelRaw, &model); err != nil {
		return "", nil, 0, nil, gwerrs.Protocol("upstream payload model must be a string")
	}
	messages = messagesRaw

	if mtRaw, ok := fields["max_tokens"]; ok {
		_ = json.Unmarshal(mtRaw, &maxTokens)
	}
	if tempRaw, ok := fields["temperature"]; ok {
		var t float64
		if err := json.Unmarshal(tempRaw, &t); err == nil {
			temperature = &t
		}
	}

	return model, messages, maxTokens, temperature, nil
}

// gatewayErrorPayload mirrors the {code, message} shape of a structured
// gateway error.
type gatewayErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// interpretReply implements the reply-interpretation order of §4.5: a
// structured {kind:"err"} always outranks HTTP status, and an HTTP error is
// only raised when nothing recognizable could be decrypted.
func interpretReply(raw json.RawMessage, httpStatus int) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, gwerrs.Protocol("decrypted payload is not a JSON object")
	}

	if kindRaw, ok := fields["kind"]; ok {
		var kind string
		if err := json.Unmarshal(kindRaw, &kind); err == nil {
			switch kind {
			case "ok":
				if respRaw, ok := fields["response"]; ok {
					return respRaw, nil
				}
				return nil, gwerrs.Protocol("ok reply missing response field")
			case "err":
				return nil, gatewayErrorFrom(fields)
			}
		}
	}

	if _, ok := fields["error"]; ok {
		return nil, gatewayErrorFrom(fields)
	}

	if httpStatus < 200 || httpStatus >= 300 {
		return nil, gwerrs.NewHTTPError(httpStatus)
	}

	if upstreamRaw, ok := fields["upstream"]; ok {
		return upstreamRaw, nil
	}

	return nil, gwerrs.Protocol("missing response payload")
}

func gatewayErrorFrom(fields map[string]json.RawMessage) error {
	errRaw, ok := fields["error"]
	if !ok {
		return gwerrs.NewGatewayError("", "")
	}
	var ge gatewayErrorPayload
	if err := json.Unmarshal(errRaw, &ge); err != nil {
		return gwerrs.NewGatewayError("", "")
	}
	return gwerrs.NewGatewayError(ge.Code, ge.Message)
}
