// Package config holds the settings shared by the relay server and the CLI
// client.
package config

import (
	"fmt"
	"os"

	"github.com/pion/webrtc/v4"
)

// Default configuration values (production)
const (
	DefaultDomain      = "live.edumesh.io"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultTURN        = "" // Optional, empty by default
	DefaultTURNUser    = ""
	DefaultTURNPass    = ""
	DefaultTokenSecret = "liveclass-dev-secret"
	DefaultListenAddr  = ":8080"
)

// Config holds the client-side configuration.
type Config struct {
	// Domain is the relay server domain
	Domain string

	// WebSocketURL and ServerURL are constructed from domain
	WebSocketURL string
	ServerURL    string

	// TokenSecret signs the channel access tokens
	TokenSecret string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Domain      string
	Insecure    bool
	TokenSecret string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = os.Getenv("LIVECLASS_DOMAIN")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	secret := opts.TokenSecret
	if secret == "" {
		secret = os.Getenv("TOKEN_SECRET")
	}
	if secret == "" {
		secret = DefaultTokenSecret
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	turnServer := opts.TURNServer
	if turnServer == "" {
		turnServer = os.Getenv("TURN_SERVER")
	}
	if turnServer == "" {
		turnServer = DefaultTURN
	}

	turnUser := opts.TURNUser
	if turnUser == "" {
		turnUser = os.Getenv("TURN_USERNAME")
	}
	if turnUser == "" {
		turnUser = DefaultTURNUser
	}

	turnPass := opts.TURNPass
	if turnPass == "" {
		turnPass = os.Getenv("TURN_PASSWORD")
	}
	if turnPass == "" {
		turnPass = DefaultTURNPass
	}

	wsScheme, httpScheme := "wss", "https"
	if opts.Insecure {
		wsScheme, httpScheme = "ws", "http"
	}

	return &Config{
		Domain:       domain,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", wsScheme, domain),
		ServerURL:    fmt.Sprintf("%s://%s", httpScheme, domain),
		TokenSecret:  secret,
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
	}, nil
}

// ICEServers returns the WebRTC ICE server list built from the configured
// STUN and (optional) TURN servers.
func (c *Config) ICEServers() []webrtc.ICEServer {
	servers := []webrtc.ICEServer{
		{URLs: []string{c.STUNServer}},
	}
	if c.TURNServer != "" {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{
				fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
				fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
			},
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

// Server holds the relay server configuration, read from the environment.
type Server struct {
	ListenAddr  string
	TokenSecret string

	// DatabaseURL selects the Postgres room store when set; the server falls
	// back to the in-memory store otherwise.
	DatabaseURL string
}

// LoadServer reads the server configuration from the environment.
func LoadServer() *Server {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = DefaultListenAddr
	}

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		secret = DefaultTokenSecret
	}

	return &Server{
		ListenAddr:  addr,
		TokenSecret: secret,
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}
