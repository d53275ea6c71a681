package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch live vitals from a running server's admin HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + addr + "/stats")
			if err != nil {
				return fmt.Errorf("fetch stats: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %s", resp.Status)
			}

			var snap struct {
				UptimeSeconds    int64 `json:"uptime_seconds"`
				OnlineCharacters int   `json:"online_characters"`
				LiveMobs         int   `json:"live_mobs"`
				TickQueueDepth   int   `json:"tick_queue_depth"`
				LastTickMs       int64 `json:"last_tick_ms"`
				ActiveGuildWars  int   `json:"active_guild_wars"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("decode stats: %w", err)
			}

			fmt.Printf("uptime:       %ds\n", snap.UptimeSeconds)
			fmt.Printf("characters:   %d online\n", snap.OnlineCharacters)
			fmt.Printf("mobs:         %d live\n", snap.LiveMobs)
			fmt.Printf("sessions:     %d\n", snap.TickQueueDepth)
			fmt.Printf("last tick:    %d\n", snap.LastTickMs)
			fmt.Printf("guild wars:   %d active\n", snap.ActiveGuildWars)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9281", "admin HTTP bind address")
	return cmd
}
