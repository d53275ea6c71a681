package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wydtm/tmsrv/internal/persist"
	"github.com/wydtm/tmsrv/internal/security"
)

func newBanCmd() *cobra.Command {
	var cfgPath, ip, reason string
	var characterID int32
	var minutes int
	var permanent bool

	cmd := &cobra.Command{
		Use:   "ban",
		Short: "Insert a ban record (IP and/or character-scoped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ip == "" && characterID == 0 {
				return fmt.Errorf("at least one of --ip or --character-id is required")
			}

			db, closeDB, err := connectDB(cfgPath)
			if err != nil {
				return err
			}
			defer closeDB()

			now := time.Now()
			b := security.Ban{
				IP:          ip,
				CharacterID: characterID,
				Reason:      reason,
				Start:       now,
				End:         now.Add(time.Duration(minutes) * time.Minute),
				IsPermanent: permanent,
			}

			repo := persist.NewBanRepo(db)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := repo.Insert(ctx, b); err != nil {
				return fmt.Errorf("insert ban: %w", err)
			}

			if permanent {
				fmt.Println("ban recorded (permanent)")
			} else {
				fmt.Printf("ban recorded, expires %s\n", b.End.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "config/server.toml", "server config path")
	cmd.Flags().StringVar(&ip, "ip", "", "ban this IP address")
	cmd.Flags().Int32Var(&characterID, "character-id", 0, "ban this character id")
	cmd.Flags().StringVar(&reason, "reason", "", "ban reason")
	cmd.Flags().IntVar(&minutes, "minutes", 60, "ban duration in minutes (ignored if --permanent)")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "ban permanently")
	return cmd
}
