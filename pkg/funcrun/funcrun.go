// Package funcrun is the request-reply client for dispatching a single
// function execution over pub/sub: the core sends a request carrying
// the function id and arguments, and waits for exactly one reply
// carrying the execution's outcome. Per the external-interface contract,
// the core never retries a Failure reply itself — only the caller may.
package funcrun

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Status is the terminal outcome of one function execution.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// Request is the wire shape sent to the function-execution subject.
type Request struct {
	FuncID      string                     `json:"func_id"`
	Args        map[string]json.RawMessage `json:"args"`
	ExecutionID string                     `json:"execution_id"`
}

// Reply is the wire shape the executor sends back.
type Reply struct {
	Status     Status          `json:"status"`
	Value      json.RawMessage `json:"value"`
	Logs       []string        `json:"logs"`
	DurationMs int64           `json:"duration_ms"`
}

// requester is the subset of *nats.Conn the client needs, narrowed so
// tests can substitute a fake responder without a live NATS server.
type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client dispatches function executions on one subject.
type Client struct {
	conn    requester
	subject string
	timeout time.Duration
}

// defaultTimeout matches the external-interface default RPC timeout.
const defaultTimeout = 10 * time.Second

// New builds a Client that publishes requests to subject (typically
// "funcrun.execute" or a workspace-scoped variant) over an existing
// NATS connection. The caller owns the connection's lifecycle.
func New(conn *nats.Conn, subject string) *Client {
	return &Client{conn: conn, subject: subject, timeout: defaultTimeout}
}

// WithTimeout returns a copy of c using the given per-request timeout in
// place of the 10s external-interface default.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.timeout = d
	return &cp
}

// Execute sends req and waits for the matching reply. Timeouts and
// retries beyond this one round trip are the caller's responsibility;
// Execute itself does not retry on a Failure reply or on a request
// timeout.
func (c *Client) Execute(ctx context.Context, req Request) (Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("funcrun: marshal request %s: %w", req.ExecutionID, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, c.subject, payload)
	if err != nil {
		return Reply{}, fmt.Errorf("funcrun: request %s: %w", req.ExecutionID, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return Reply{}, fmt.Errorf("funcrun: decode reply for %s: %w", req.ExecutionID, err)
	}
	return reply, nil
}
