package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Sender delivers a Request and waits for its Response. The error is
// reserved for delivery failures; a handler failure is a Response with
// Success false.
type Sender interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Local sends to an in-process dispatcher.
type Local struct {
	Dispatcher *Dispatcher
}

func (l Local) Send(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return l.Dispatcher.Dispatch(ctx, req), nil
}

// ─────────────────────────────
// NATS
// ─────────────────────────────

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSSender sends requests as envelopes over NATS request/reply.
type NATSSender struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSSender builds a sender; a zero timeout uses nats.DefaultTimeout.
func NewNATSSender(nc *nats.Conn, subject string, timeout time.Duration) *NATSSender {
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	return &NATSSender{nc: nc, subject: subject, timeout: timeout}
}

func (s *NATSSender) Send(ctx context.Context, req Request) (Response, error) {
	data, err := Encode(req)
	if err != nil {
		return Response{}, err
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return Response{}, fmt.Errorf("nats request %s: %w", req.Kind(), err)
	}
	var resp Response
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode reply to %s: %w", req.Kind(), err)
	}
	return resp, nil
}

// ServeNATS answers envelopes published on subject with d. Subscribers
// sharing queue split the load.
func ServeNATS(nc *nats.Conn, subject, queue string, d *Dispatcher, log logger.Logger) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))

		var resp Response
		if req, err := Decode(msg.Data); err != nil {
			resp = Fail(err)
		} else {
			resp = d.Dispatch(ctx, req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			log.Error("encode nats reply", logger.Error(err))
			return
		}
		if err := msg.Respond(out); err != nil {
			log.Warn("nats reply failed", logger.String("subject", subject), logger.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Info("nats transport listening", logger.String("subject", subject), logger.String("queue", queue))
	return sub, nil
}
