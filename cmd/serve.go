package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/config"
	"github.com/AyushKoirala03/Video-chatting/internal/logging"
	"github.com/AyushKoirala03/Video-chatting/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the websocket relay that carries room membership and negotiation
messages between participants. Media never touches the relay; it flows
directly between peers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelay()
	},
}

func runRelay() error {
	logger := logging.New(zap.InfoLevel)
	defer logger.Sync()

	cfg := config.Load(config.Options{ListenAddr: flagListen})

	hub := server.NewHub(logger)
	go hub.Run()

	logger.Info("relay listening", zap.String("addr", cfg.ListenAddr))
	if err := http.ListenAndServe(cfg.ListenAddr, server.Handler(hub, logger)); err != nil {
		return fmt.Errorf("relay stopped: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "HTTP listen address")
}
