package config

import (
	"fmt"
	"os"
)

// Default configuration values.
const (
	DefaultServerURL  = "ws://localhost:8080/ws"
	DefaultListenAddr = ":8080"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
)

// Config holds application configuration for both the client and the relay.
type Config struct {
	// ServerURL is the websocket endpoint of the signaling relay, without
	// the trailing client id path segment.
	ServerURL string

	// ListenAddr is the relay's HTTP listen address (serve command only).
	ListenAddr string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ServerURL  string
	ListenAddr string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) *Config {
	return &Config{
		ServerURL:  firstOf(opts.ServerURL, os.Getenv("SERVER_URL"), DefaultServerURL),
		ListenAddr: firstOf(opts.ListenAddr, os.Getenv("LISTEN_ADDR"), DefaultListenAddr),
		STUNServer: firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer: firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), ""),
		TURNUser:   firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), ""),
		TURNPass:   firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), ""),
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// WebSocketURL returns the per-participant signaling endpoint.
func (c *Config) WebSocketURL(clientID string) string {
	return fmt.Sprintf("%s/%s", c.ServerURL, clientID)
}

// RoomsURL returns the relay's room discovery endpoint, derived from the
// websocket URL.
func (c *Config) RoomsURL() string {
	u := c.ServerURL
	switch {
	case len(u) >= 6 && u[:6] == "wss://":
		u = "https://" + u[6:]
	case len(u) >= 5 && u[:5] == "ws://":
		u = "http://" + u[5:]
	}
	// Strip the /ws suffix if present.
	if len(u) >= 3 && u[len(u)-3:] == "/ws" {
		u = u[:len(u)-3]
	}
	return u + "/api/rooms"
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
