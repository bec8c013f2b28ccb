package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AyushKoirala03/Video-chatting/internal/config"
	"github.com/AyushKoirala03/Video-chatting/internal/server"
	"github.com/AyushKoirala03/Video-chatting/internal/ui"
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List active rooms on the signaling server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRooms()
	},
}

func listRooms() error {
	cfg := config.Load(config.Options{ServerURL: flagServer})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(cfg.RoomsURL())
	if err != nil {
		return fmt.Errorf("could not reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var rooms map[string]server.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return fmt.Errorf("could not decode room list: %w", err)
	}

	if len(rooms) == 0 {
		ui.PrintInfo("No active rooms")
		return nil
	}

	ids := make([]string, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Room", "Users", "Participants"})
	for _, id := range ids {
		info := rooms[id]
		names := make([]string, 0, len(info.Users))
		for _, u := range info.Users {
			names = append(names, u.Username)
		}
		t.AppendRow(table.Row{id, info.UserCount, strings.Join(names, ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().StringVarP(&flagServer, "server", "s", "", "signaling server websocket URL")
}
