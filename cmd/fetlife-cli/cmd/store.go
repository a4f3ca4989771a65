package cmd

import (
	"errors"
	"fmt"
	"os"

	"fetlife-adapter/internal/sessionstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func storeCmd(a *app) *cobra.Command {
	store := &cobra.Command{
		Use:   "store",
		Short: "Maintain the session database.",
	}

	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts with a stored session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.AccountIds(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(a.out, table.Row{"Account", "User id", "Nickname"})
			for _, id := range ids {
				account, ok, err := a.store.Load(cmd.Context(), id)
				if err != nil {
					t.AppendRow(table.Row{id, "-", fmt.Sprintf("unreadable: %v", err)})
					continue
				}
				if ok {
					t.AppendRow(table.Row{id, account.UserId, account.Nickname})
				}
			}
			t.Render()
			return nil
		},
	}

	reseal := &cobra.Command{
		Use:   "reseal",
		Short: "Re-encrypt every stored session with the key in ADAPTER_NEW_SEAL_KEY.",
		Long: "Re-encrypt every stored session with the key in ADAPTER_NEW_SEAL_KEY. " +
			"An empty key stores the sessions unsealed. Sessions are read with the configured seal_key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, ok := os.LookupEnv("ADAPTER_NEW_SEAL_KEY")
			if !ok {
				return errors.New("ADAPTER_NEW_SEAL_KEY is not set")
			}
			next, err := sessionstore.ParseSealKey(encoded)
			if err != nil {
				return err
			}
			if err := a.store.Reseal(cmd.Context(), next); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "resealed every session, update seal_key before the next run")
			return nil
		},
	}

	store.AddCommand(accounts, reseal)
	return store
}
