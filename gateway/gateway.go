// Package gateway is the single entry point of the relay: it
// authenticates new websocket connections, registers them, dispatches
// inbound frames to the message relay or the signaling engine, and
// cleans up on disconnect.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"relay-lab/auth"
	"relay-lab/contract"
	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/proto"
	"relay-lab/services"
)

var validate = validator.New()

type handlerFunc func(identity string, data []byte) error

type Gateway struct {
	log                  *slog.Logger
	verifier             contract.IVerifier
	registry             contract.IRegistry
	messages             services.IMessageService
	calls                services.ICallService
	upgrader             websocket.Upgrader
	handlers             map[string]handlerFunc
	connectionBufferSize int
	writeTimeout         time.Duration
}

func NewGateway(log *slog.Logger, verifier contract.IVerifier,
	registry contract.IRegistry, messages services.IMessageService,
	calls services.ICallService, connectionBufferSize int,
	writeTimeout time.Duration) *Gateway {
	g := &Gateway{
		log:      log,
		verifier: verifier,
		registry: registry,
		messages: messages,
		calls:    calls,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Identity comes from the verified token, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connectionBufferSize: connectionBufferSize,
		writeTimeout:         writeTimeout,
	}
	// Dispatch table keyed by frame type.
	g.handlers = map[string]handlerFunc{
		proto.TypeSendMessage:  g.handleSendMessage,
		proto.TypeCallUser:     g.handleCall,
		proto.TypeAnswerCall:   g.handleAnswer,
		proto.TypeIceCandidate: g.handleCandidate,
		proto.TypeEndCall:      g.handleEnd,
	}
	return g
}

// ServeHTTP admits one client connection. The token is verified before
// the upgrade completes: an unauthenticated client is refused with 401
// and never reaches the registry.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := g.verifier.Verify(auth.ExtractToken(r))
	if err != nil {
		g.log.Warn("Connection refused", "error", err)
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Upgrade failed", "identity", identity, "error", err)
		return
	}

	g.serve(identity, conn)
}

// serve runs one connection to completion: register, pump events out,
// read frames in arrival order, then deregister. A disconnect never
// rolls back events already forwarded; it only triggers cleanup.
func (g *Gateway) serve(identity string, conn *websocket.Conn) {
	sink := NewConnSink(g.log, g.connectionBufferSize)
	connID := g.registry.Register(identity, sink)
	g.log.Info("User connected", "identity", identity)

	ctx, cancel := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writePump(ctx, identity, conn, sink)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		g.dispatch(identity, sink, data)
	}

	cancel()
	_ = conn.Close()
	<-writerDone

	_, presenceLost := g.registry.Deregister(connID)
	if presenceLost {
		g.calls.HandleDisconnect(identity)
	}
	g.log.Info("User disconnected", "identity", identity)
}

// writePump drains the connection's sink onto the wire. A connection
// that cannot absorb writes within the deadline is closed; its peer
// handlers are never blocked by it.
func (g *Gateway) writePump(ctx context.Context, identity string, conn *websocket.Conn, sink *ConnSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sink.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := conn.WriteJSON(toWireFrame(evt)); err != nil {
				g.log.Warn("Failed to push event to connection",
					"identity", identity, "event", evt.Name(), "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// dispatch routes one inbound frame. Failures surface as an error event
// on the originating connection only; nothing is broadcast to a
// counterpart, and nothing here can take the relay down.
func (g *Gateway) dispatch(identity string, sink *ConnSink, data []byte) {
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.reply(sink, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err))
		return
	}

	handler, ok := g.handlers[env.Type]
	if !ok {
		g.reply(sink, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, env.Type))
		return
	}

	if err := handler(identity, data); err != nil {
		g.log.Debug("Operation failed", "identity", identity, "type", env.Type, "error", err)
		g.reply(sink, err)
	}
}

func (g *Gateway) reply(sink *ConnSink, err error) {
	_ = sink.Consume(context.Background(), event.OperationError{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}

func (g *Gateway) handleSendMessage(identity string, data []byte) error {
	var req proto.SendMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	_, err := g.messages.Send(context.Background(), domain.SendMessageCommand{
		Sender:   identity,
		Receiver: req.To,
		Content:  req.Content,
	})
	return err
}

func (g *Gateway) handleCall(identity string, data []byte) error {
	var req proto.CallRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return g.calls.Call(identity, req.To, req.Offer, req.CallType)
}

func (g *Gateway) handleAnswer(identity string, data []byte) error {
	var req proto.AnswerRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return g.calls.Answer(identity, req.To, req.Answer)
}

func (g *Gateway) handleCandidate(identity string, data []byte) error {
	var req proto.CandidateRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	g.calls.Candidate(identity, req.To, req.Candidate)
	return nil
}

func (g *Gateway) handleEnd(identity string, data []byte) error {
	var req proto.EndRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	return g.calls.End(identity, req.To)
}

// decode unmarshals and structurally validates one inbound frame.
func decode(data []byte, req any) error {
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return nil
}
