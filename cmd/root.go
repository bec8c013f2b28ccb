package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/AyushKoirala03/Video-chatting/internal/ui"
	"github.com/AyushKoirala03/Video-chatting/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "videochat",
	Short:   "Terminal video chat over WebRTC mesh connections",
	Long:    `Videochat connects small groups in a room over direct WebRTC peer connections. A lightweight relay carries only the signaling; audio, video, screen sharing and mute state flow peer to peer. The relay is bundled as the serve subcommand.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
