package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"

	"relay-lab/auth"
	"relay-lab/client"
	"relay-lab/proto"
)

// Exit codes for the tester application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the tester-side environment variables. The tester
// signs its own token, which is only useful against a relay sharing
// the same secret (local development).
type Config struct {
	ServerAddress     string        `env:"RELAY_SERVER_ADDR,default=localhost:8080"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	Identity          string        `env:"TESTER_IDENTITY,required=true"`
	Peer              string        `env:"TESTER_PEER,required=true"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

// run connects one identity to the relay, prints every event it
// receives, and turns stdin lines into messages or call commands.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Sign a token and connect.
	token, err := auth.GenerateToken([]byte(config.JWTSecret), config.Identity, config.AuthTokenDuration)
	if err != nil {
		return exitRuntime, fmt.Errorf("token generation failed: %w", err)
	}

	url := fmt.Sprintf("ws://%s/ws", config.ServerAddress)
	c, err := client.Dial(ctx, url, token)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		_ = c.Close()
	}()

	color.Green.Printf(">>> Connected to %s as %q, talking to %q (Ctrl+C to quit)\n",
		config.ServerAddress, config.Identity, config.Peer)
	color.Gray.Println("Type a line to send it; /call, /answer, /end for signaling")

	// 4. Event reception loop.
	go func() {
		for {
			evt, err := c.ReadEvent()
			if err != nil {
				if ctx.Err() == nil {
					color.Red.Printf("Connection lost: %v\n", err)
				}
				stop()
				return
			}
			printEvent(evt)
		}
	}()

	// 5. Input loop: each stdin line becomes a frame.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			color.Gray.Println("Stopping tester...")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if err := handleLine(c, config.Peer, line); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
			}
		}
	}
}

// handleLine interprets one stdin line: slash commands drive signaling,
// anything else is relayed as a text message to the configured peer.
func handleLine(c *client.Client, peer, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/call":
		return c.Call(peer, json.RawMessage(`{"sdp":"tester-offer"}`), "video")
	case line == "/answer":
		return c.Answer(peer, json.RawMessage(`{"sdp":"tester-answer"}`))
	case line == "/end":
		return c.EndCall(peer)
	default:
		return c.SendMessage(peer, line)
	}
}

// printEvent renders one relay event with a color per event family.
func printEvent(evt any) {
	switch e := evt.(type) {
	case proto.MessageEvent:
		color.Cyan.Printf("[%s] %s: %s\n",
			e.CreatedAt.Format(time.TimeOnly), e.Sender, e.Content)
	case proto.IncomingCallEvent:
		color.Yellow.Printf("Incoming %s call from %s (/answer to pick up)\n", e.CallType, e.From)
	case proto.CallAnsweredEvent:
		color.Yellow.Printf("Call answered by %s\n", e.From)
	case proto.CandidateEvent:
		color.Gray.Printf("ICE candidate from %s\n", e.From)
	case proto.CallEndedEvent:
		color.Yellow.Printf("Call ended by %s\n", e.From)
	case proto.ErrorEvent:
		color.Red.Printf("Error [%s]: %s\n", e.Code, e.Message)
	default:
		color.Gray.Printf("Unknown event: %+v\n", evt)
	}
}
