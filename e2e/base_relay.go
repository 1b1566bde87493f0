package e2e

import (
	"context"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"relay-lab/auth"
	"relay-lab/client"
)

const (
	dialTimeout  = 5 * time.Second
	eventTimeout = 5 * time.Second
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
// and skips the suite when no relay address is configured.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping e2e suite")
	}
}

// DialAs connects a fresh client authenticated as the given identity,
// signing the token with the shared e2e secret.
func (s *BaseRelaySuite) DialAs(identity string) *client.Client {
	header := fmt.Sprintf("  ====== connecting as %s ======", identity)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	token, err := auth.GenerateToken([]byte(s.Config.JWTSecret), identity, time.Hour)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	url := fmt.Sprintf("ws://%s/ws", s.Config.RelayAddr)
	c, err := client.Dial(ctx, url, token)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	return c
}

// NextEvent reads one event with a deadline so a silent relay fails the
// test instead of hanging it.
func (s *BaseRelaySuite) NextEvent(c *client.Client) any {
	s.Require().NoError(c.SetReadDeadline(time.Now().Add(eventTimeout)))
	evt, err := c.ReadEvent()
	s.Require().NoError(err, "No event received before deadline")
	return evt
}
