package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/config"
	"github.com/AyushKoirala03/Video-chatting/internal/identity"
	"github.com/AyushKoirala03/Video-chatting/internal/logging"
	"github.com/AyushKoirala03/Video-chatting/internal/media"
	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
	"github.com/AyushKoirala03/Video-chatting/internal/room"
	"github.com/AyushKoirala03/Video-chatting/internal/rtc"
	"github.com/AyushKoirala03/Video-chatting/internal/signaling"
	"github.com/AyushKoirala03/Video-chatting/internal/ui"
)

var (
	flagServer   string
	flagName     string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a video chat room",
	Long: `Join a room and start exchanging audio, video and chat with everyone in it.

Examples:
  videochat join standup
  videochat join --name Alice standup
  videochat join --server wss://chat.example.com/ws standup`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := "default"
		if len(args) > 0 {
			roomID = args[0]
		}
		return joinRoom(roomID)
	},
}

func joinRoom(roomID string) error {
	logger := logging.New(zap.WarnLevel)
	defer logger.Sync()

	cfg := config.Load(config.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})

	clientID := identity.New()
	username := flagName
	if username == "" {
		username = "User_" + clientID[:8]
	}

	// Capture is synthesized for headless operation; negotiation, mute and
	// source switching behave the same as with real devices.
	mgr := media.NewManager(media.SyntheticCapturer{}, logger)

	console := ui.NewConsole(roomID, username)

	sess := room.NewSession(clientID, mgr, console,
		func() (rtc.Transport, error) {
			return rtc.NewPion(cfg, logger)
		},
		func(joinEnvelope func() *protocol.Envelope, shouldReconnect func() bool) room.Channel {
			return signaling.NewClient(cfg.WebSocketURL(clientID), joinEnvelope, shouldReconnect, logger)
		},
		logger)
	console.Bind(sess)

	if err := sess.Join(roomID, username); err != nil {
		return fmt.Errorf("could not join: %w", err)
	}
	defer sess.Leave()

	return console.Run()
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagServer, "server", "s", "", "signaling server websocket URL")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "display name shown to other participants")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server host")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
}
