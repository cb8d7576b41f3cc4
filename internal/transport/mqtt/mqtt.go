// Package mqtt implements the MQTT transport for enlisten.
//
// MQTT suits batch workers and LMS integrations that queue scripts through
// a broker. This transport subscribes to a configurable request topic and
// publishes each result to the request's reply topic, or to
// <prefix>/results/<request id> when none is given. Requests published to a
// topic ending in "/plan" are previewed instead of compiled.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nadzzz/enlisten/internal/config"
	"github.com/nadzzz/enlisten/internal/message"
	"github.com/nadzzz/enlisten/internal/transport"
)

const connectTimeout = 10 * time.Second

// publisher is the part of the paho client used to emit results.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg config.MQTTConfig

	mu     sync.Mutex
	client pahomqtt.Client
	pub    publisher
	wg     sync.WaitGroup
}

// New creates a new MQTT transport.
func New(cfg config.MQTTConfig) *Transport {
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the MQTT broker and subscribes to the configured topic.
// It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	onMessage := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handleMessage(ctx, handler, msg)
		}()
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(t.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			// Resubscribe on every (re)connect; the session is not persistent.
			tok := c.Subscribe(t.cfg.Topic, t.cfg.QoS, onMessage)
			if tok.WaitTimeout(connectTimeout) && tok.Error() != nil {
				slog.Error("mqtt subscribe failed", "topic", t.cfg.Topic, "error", tok.Error())
				return
			}
			slog.Info("mqtt subscribed", "topic", t.cfg.Topic)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
		})

	client := pahomqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	t.mu.Lock()
	t.client = client
	t.pub = client
	t.mu.Unlock()

	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "topic", t.cfg.Topic)
	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	return nil
}

// handleMessage decodes one request, runs it and publishes the result.
func (t *Transport) handleMessage(ctx context.Context, handler transport.Handler, msg pahomqtt.Message) {
	var req message.CompileRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		slog.Warn("mqtt invalid request", "topic", msg.Topic(), "error", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = msg.Topic()
	}
	req.PlanOnly = req.PlanOnly || strings.HasSuffix(msg.Topic(), "/plan")
	req.Timestamp = time.Now()

	result, err := handler(ctx, &req)
	if err != nil {
		result = &message.CompileResult{RequestID: req.ID, Error: err.Error(), ErrorKind: "internal"}
	}

	reply := req.ReplyTo
	if reply == "" {
		reply = t.resultTopic(req.ID)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("mqtt marshalling result", "request_id", req.ID, "error", err)
		return
	}
	if err := t.publish(reply, payload); err != nil {
		slog.Error("mqtt publish result failed", "request_id", req.ID, "topic", reply, "error", err)
		return
	}
	slog.Info("mqtt result published", "request_id", req.ID, "topic", reply)
}

func (t *Transport) resultTopic(id string) string {
	prefix := strings.TrimRight(t.cfg.Prefix, "/")
	if prefix == "" {
		prefix = "enlisten"
	}
	return prefix + "/results/" + id
}

func (t *Transport) publish(topic string, payload []byte) error {
	t.mu.Lock()
	pub := t.pub
	t.mu.Unlock()
	if pub == nil {
		return errors.New("mqtt client not connected")
	}
	tok := pub.Publish(topic, t.cfg.QoS, false, payload)
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return tok.Error()
}

// Send publishes a payload to the MQTT topic named by the target endpoint.
func (t *Transport) Send(ctx context.Context, target message.Target, payload []byte) error {
	if err := t.publish(target.Endpoint, payload); err != nil {
		return fmt.Errorf("mqtt send: %w", err)
	}
	slog.Debug("mqtt send success", "topic", target.Endpoint, "bytes", len(payload))
	return nil
}

// Close waits for in-flight requests and disconnects from the MQTT broker.
func (t *Transport) Close() error {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
	}
	return nil
}
