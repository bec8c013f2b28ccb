package rtc

import (
	"github.com/pion/webrtc/v4"

	"github.com/AyushKoirala03/Video-chatting/internal/config"
)

// ICEServers assembles the STUN/TURN server list from configuration.
func ICEServers(cfg *config.Config) []webrtc.ICEServer {
	servers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}
	return servers
}
