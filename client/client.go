// Package client is a small typed websocket client for the relay, used
// by the tester command and the e2e harness.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"relay-lab/proto"
)

type Client struct {
	conn *websocket.Conn
}

// Dial connects to a relay websocket endpoint (a full ws:// or wss://
// URL) presenting the token as a standard bearer credential.
func Dial(ctx context.Context, rawURL, token string) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", rawURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) SendMessage(to, content string) error {
	return c.conn.WriteJSON(proto.SendMessageRequest{
		Type: proto.TypeSendMessage, To: to, Content: content,
	})
}

func (c *Client) Call(to string, offer json.RawMessage, callType string) error {
	return c.conn.WriteJSON(proto.CallRequest{
		Type: proto.TypeCallUser, To: to, Offer: offer, CallType: callType,
	})
}

func (c *Client) Answer(to string, answer json.RawMessage) error {
	return c.conn.WriteJSON(proto.AnswerRequest{
		Type: proto.TypeAnswerCall, To: to, Answer: answer,
	})
}

func (c *Client) Candidate(to string, candidate json.RawMessage) error {
	return c.conn.WriteJSON(proto.CandidateRequest{
		Type: proto.TypeIceCandidate, To: to, Candidate: candidate,
	})
}

func (c *Client) EndCall(to string) error {
	return c.conn.WriteJSON(proto.EndRequest{Type: proto.TypeEndCall, To: to})
}

// SendRaw writes an arbitrary frame, bypassing the typed helpers. Meant
// for tests probing how the relay treats malformed input.
func (c *Client) SendRaw(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadEvent blocks for the next relay event and decodes it into its
// typed frame. Frames with an unknown type come back as a bare Envelope.
func (c *Client) ReadEvent() (any, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case proto.TypeMessage:
		return decodeFrame[proto.MessageEvent](data)
	case proto.TypeIncomingCall:
		return decodeFrame[proto.IncomingCallEvent](data)
	case proto.TypeCallAnswered:
		return decodeFrame[proto.CallAnsweredEvent](data)
	case proto.TypeIceCandidate:
		return decodeFrame[proto.CandidateEvent](data)
	case proto.TypeCallEnded:
		return decodeFrame[proto.CallEndedEvent](data)
	case proto.TypeError:
		return decodeFrame[proto.ErrorEvent](data)
	}
	return env, nil
}

func decodeFrame[T any](data []byte) (T, error) {
	var frame T
	err := json.Unmarshal(data, &frame)
	return frame, err
}

// SetReadDeadline bounds how long ReadEvent may block.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
