package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wydtm/tmsrv/internal/persist"
)

func newAccountCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "account",
		Short: "Account lookups",
	}
	root.AddCommand(newAccountInfoCmd())
	return root
}

func newAccountInfoCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show an account's stored row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := connectDB(cfgPath)
			if err != nil {
				return err
			}
			defer closeDB()

			repo := persist.NewAccountRepo(db)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			row, err := repo.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load account: %w", err)
			}
			if row == nil {
				fmt.Println("no such account")
				return nil
			}

			fmt.Printf("name:          %s\n", row.Name)
			fmt.Printf("access level:  %d\n", row.AccessLevel)
			fmt.Printf("char slots:    %d\n", row.CharacterSlot)
			fmt.Printf("ip / host:     %s / %s\n", row.IP, row.Host)
			fmt.Printf("banned:        %v\n", row.Banned)
			fmt.Printf("online:        %v\n", row.Online)
			fmt.Printf("created:       %s\n", row.CreatedAt.Format(time.RFC3339))
			if row.LastActive != nil {
				fmt.Printf("last active:   %s\n", row.LastActive.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config/server.toml", "server config path")
	return cmd
}
