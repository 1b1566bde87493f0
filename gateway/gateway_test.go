package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"relay-lab/auth"
	"relay-lab/client"
	"relay-lab/proto"
	"relay-lab/repositories"
	"relay-lab/runtime"
	"relay-lab/services"
	"relay-lab/signal"
)

const testSecret = "gateway-test-secret"

// startRelay wires a full relay (registry, badger store, services,
// signaling engine) behind an httptest server and returns its ws URL.
func startRelay(t *testing.T) (string, repositories.MessageRepository) {
	t.Helper()
	log := slog.Default()

	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := runtime.NewRegistry(log)
	repository := repositories.NewMessageRepository(db, log, nil)
	messages := services.NewMessageService(log, repository, registry, 500)
	calls := services.NewCallService(signal.NewEngine(log, registry))
	verifier := auth.NewTokenVerifier(testSecret)

	gw := NewGateway(log, verifier, registry, messages, calls, 16, time.Second)

	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), repository
}

// dialAs connects a client authenticated as the given identity.
func dialAs(t *testing.T, url, identity string) *client.Client {
	t.Helper()
	token, err := auth.GenerateToken([]byte(testSecret), identity, time.Hour)
	require.NoError(t, err)

	c, err := client.Dial(context.Background(), url, token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// nextEvent reads one event with a deadline so a broken relay fails
// the test instead of hanging it.
func nextEvent(t *testing.T, c *client.Client) any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	evt, err := c.ReadEvent()
	require.NoError(t, err)
	return evt
}

func TestGateway_RejectsMissingOrInvalidToken(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	// When dialing without any token
	_, err := client.Dial(context.Background(), url, "")

	// Then the upgrade is refused before reaching the registry
	req.Error(err)
	req.Contains(err.Error(), "401")

	// When dialing with a token signed by another secret
	token, err := auth.GenerateToken([]byte("wrong-secret"), "alice", time.Hour)
	req.NoError(err)
	_, err = client.Dial(context.Background(), url, token)
	req.Error(err)
	req.Contains(err.Error(), "401")
}

func TestGateway_MessageDeliveredAndPersisted(t *testing.T) {
	req := require.New(t)
	url, repository := startRelay(t)

	alice := dialAs(t, url, "alice")
	bob := dialAs(t, url, "bob")

	// When alice sends bob a message
	req.NoError(alice.SendMessage("bob", "hello bob"))

	// Then bob receives it
	received, ok := nextEvent(t, bob).(proto.MessageEvent)
	req.True(ok)
	req.Equal("alice", received.Sender)
	req.Equal("bob", received.Receiver)
	req.Equal("hello bob", received.Content)
	req.NotEmpty(received.ID)

	// Then alice receives the same copy on her own connection
	echoed, ok := nextEvent(t, alice).(proto.MessageEvent)
	req.True(ok)
	req.Equal(received.ID, echoed.ID)

	// Then the message was persisted before delivery
	stored, _, err := repository.GetMessages("alice", "bob", nil)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("hello bob", stored[0].Content)
}

func TestGateway_MultiDeviceFanOut(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")
	bobPhone := dialAs(t, url, "bob")
	bobLaptop := dialAs(t, url, "bob")

	// When alice messages bob who has two live connections
	req.NoError(alice.SendMessage("bob", "ping"))

	// Then both of bob's devices receive an identical copy
	onPhone, ok := nextEvent(t, bobPhone).(proto.MessageEvent)
	req.True(ok)
	onLaptop, ok := nextEvent(t, bobLaptop).(proto.MessageEvent)
	req.True(ok)
	req.Equal(onPhone.ID, onLaptop.ID)
	req.Equal("ping", onPhone.Content)
}

func TestGateway_FullCallLifecycle(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")
	bob := dialAs(t, url, "bob")

	// When alice calls bob
	offer := json.RawMessage(`{"sdp":"offer-sdp"}`)
	req.NoError(alice.Call("bob", offer, "voice"))

	// Then bob sees the incoming call with the opaque offer intact
	incoming, ok := nextEvent(t, bob).(proto.IncomingCallEvent)
	req.True(ok)
	req.Equal("alice", incoming.From)
	req.Equal("voice", incoming.CallType)
	req.JSONEq(string(offer), string(incoming.Offer))

	// When bob answers
	answer := json.RawMessage(`{"sdp":"answer-sdp"}`)
	req.NoError(bob.Answer("alice", answer))

	answered, ok := nextEvent(t, alice).(proto.CallAnsweredEvent)
	req.True(ok)
	req.Equal("bob", answered.From)
	req.JSONEq(string(answer), string(answered.Answer))

	// When both sides trickle candidates
	req.NoError(alice.Candidate("bob", json.RawMessage(`{"candidate":"a1"}`)))
	req.NoError(bob.Candidate("alice", json.RawMessage(`{"candidate":"b1"}`)))

	toBob, ok := nextEvent(t, bob).(proto.CandidateEvent)
	req.True(ok)
	req.Equal("alice", toBob.From)
	toAlice, ok := nextEvent(t, alice).(proto.CandidateEvent)
	req.True(ok)
	req.Equal("bob", toAlice.From)

	// When bob hangs up
	req.NoError(bob.EndCall("alice"))

	ended, ok := nextEvent(t, alice).(proto.CallEndedEvent)
	req.True(ok)
	req.Equal("bob", ended.From)
}

func TestGateway_BusyCalleeRejectsSecondCall(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")
	bob := dialAs(t, url, "bob")
	carol := dialAs(t, url, "carol")

	// Given alice is already ringing bob
	req.NoError(alice.Call("bob", json.RawMessage(`{"sdp":"o1"}`), "video"))
	_, ok := nextEvent(t, bob).(proto.IncomingCallEvent)
	req.True(ok)

	// When alice tries to ring bob a second time from another flow
	req.NoError(alice.Call("bob", json.RawMessage(`{"sdp":"o2"}`), "video"))

	// Then the second attempt comes back as a conflict to alice only
	errEvt, ok := nextEvent(t, alice).(proto.ErrorEvent)
	req.True(ok)
	req.Equal("CALL_CONFLICT", errEvt.Code)

	// And carol calling alice still works, the pair is independent
	req.NoError(carol.Call("alice", json.RawMessage(`{"sdp":"o3"}`), "voice"))
	incoming, ok := nextEvent(t, alice).(proto.IncomingCallEvent)
	req.True(ok)
	req.Equal("carol", incoming.From)
}

func TestGateway_ErrorsStayOnOriginatingConnection(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")
	bob := dialAs(t, url, "bob")

	// When alice messages herself
	req.NoError(alice.SendMessage("alice", "echo chamber"))

	// Then she gets a validation error
	errEvt, ok := nextEvent(t, alice).(proto.ErrorEvent)
	req.True(ok)
	req.Equal("SELF_MESSAGE", errEvt.Code)

	// And bob sees nothing at all
	req.NoError(bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	_, err := bob.ReadEvent()
	req.Error(err)
}

func TestGateway_UnknownFrameTypeReturnsError(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")

	// When an unknown frame type is sent through the raw codec path
	req.NoError(alice.SendRaw([]byte(`{"type":"teleport"}`)))

	errEvt, ok := nextEvent(t, alice).(proto.ErrorEvent)
	req.True(ok)
	req.Equal("VALIDATION", errEvt.Code)
}

func TestGateway_DisconnectEndsCallsForCounterpart(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	alice := dialAs(t, url, "alice")
	bob := dialAs(t, url, "bob")

	// Given an established call
	req.NoError(alice.Call("bob", json.RawMessage(`{"sdp":"o1"}`), "video"))
	_, ok := nextEvent(t, bob).(proto.IncomingCallEvent)
	req.True(ok)
	req.NoError(bob.Answer("alice", json.RawMessage(`{"sdp":"a1"}`)))
	_, ok = nextEvent(t, alice).(proto.CallAnsweredEvent)
	req.True(ok)

	// When bob's last connection drops
	req.NoError(bob.Close())

	// Then alice is told the call ended
	ended, ok := nextEvent(t, alice).(proto.CallEndedEvent)
	req.True(ok)
	req.Equal("bob", ended.From)
}

func TestGateway_RejectsPlainHTTPRequest(t *testing.T) {
	req := require.New(t)
	url, _ := startRelay(t)

	token, err := auth.GenerateToken([]byte(testSecret), "alice", time.Hour)
	req.NoError(err)

	// When hitting the endpoint without a websocket handshake
	httpURL := "http" + strings.TrimPrefix(url, "ws")
	request, err := http.NewRequest(http.MethodGet, httpURL, nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()

	// Then the upgrade fails with a client error, not a hang
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}
