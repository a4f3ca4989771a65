package cmd

import (
	"errors"
	"fmt"
	"os"

	"fetlife-adapter/internal/scrapers/fetlife"
	"fetlife-adapter/lib/configutil"

	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log the account in and store its session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				configutil.EnvString(&username, "FETLIFE_USERNAME")
			}
			if password == "" {
				configutil.EnvString(&password, "FETLIFE_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("missing credentials, pass --username and --password or set FETLIFE_USERNAME and FETLIFE_PASSWORD")
			}
			transport, err := a.transports()
			if err != nil {
				return err
			}

			var account *fetlife.Account
			err = a.store.Cycle(cmd.Context(), a.account, func(acc *fetlife.Account) error {
				account = acc
				return fetlife.NewUser(acc, transport, a.tel).LogIn(cmd.Context(), username, password)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s (%d)\n", account.Nickname, account.UserId)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Nickname or email, defaults to FETLIFE_USERNAME.")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password, defaults to FETLIFE_PASSWORD.")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session of the account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := a.store.Delete(cmd.Context(), a.account)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintf(a.out, "no session stored for %q\n", a.account)
				return nil
			}
			fmt.Fprintf(a.out, "forgot session of %q\n", a.account)
			return nil
		},
	}
}

func cookiesCmd(a *app) *cobra.Command {
	cookies := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect the cookies of a stored session.",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the session cookies in the Netscape cookies.txt format.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, ok, err := a.store.Load(cmd.Context(), a.account)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("account %q: %w", a.account, fetlife.ErrNotAuthenticated)
			}
			if output == "" || output == "-" {
				return account.Jar.WriteNetscape(a.out)
			}

			f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			err = account.Jar.WriteNetscape(f)
			return errors.Join(err, f.Close())
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "-", "File to write, - for stdout.")

	cookies.AddCommand(export)
	return cookies
}
