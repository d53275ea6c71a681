// Command tmadmin is the operator-facing CLI for a running tmsrv
// deployment: querying live server stats over the read-only admin HTTP
// surface, and issuing IP- or character-scoped bans and account lookups
// directly against the database
// (independent of a live server process, for incident response when the
// server itself is down or unreachable).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tmadmin",
		Short: "Operator CLI for a tmsrv deployment",
	}
	root.AddCommand(newStatsCmd())
	root.AddCommand(newBanCmd())
	root.AddCommand(newAccountCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
