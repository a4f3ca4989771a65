package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"fetlife-adapter/internal/components/chrono"
	"fetlife-adapter/internal/components/telemetry"
	"fetlife-adapter/internal/db"
	"fetlife-adapter/internal/scrapers/fetlife"
	"fetlife-adapter/internal/sessionstore"
	"fetlife-adapter/lib/configutil"

	"github.com/spf13/cobra"
)

type Config struct {
	fetlife.TransportConfig

	Database string `json:"database"`
	SealKey  string `json:"seal_key"`
}

var defaultConfig = Config{
	TransportConfig: fetlife.TransportConfig{
		Kind:           fetlife.TransportHTTP,
		BaseUrl:        fetlife.DefaultBaseUrl,
		TimeoutSeconds: 30,
	},
	Database: "sessions.db",
}

// app is the state shared by every command once the root command opened the store.
type app struct {
	configPath string
	account    string
	verbose    bool

	out        io.Writer
	errOut     io.Writer
	cfg        Config
	database   *sql.DB
	store      *sessionstore.Store
	transports func() (fetlife.Transport, error)
	tel        telemetry.API
}

func (a *app) open(ctx context.Context) error {
	cfg, err := configutil.ReadOptional(a.configPath, defaultConfig)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	configutil.EnvString(&cfg.SealKey, "ADAPTER_SEAL_KEY")
	a.cfg = cfg

	telemetry.InitSlog(a.verbose)
	a.tel = telemetry.SlogAPI{}

	sealer, err := sessionstore.ParseSealKey(cfg.SealKey)
	if err != nil {
		return err
	}
	a.database, err = db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.store = sessionstore.New(a.database, sealer, chrono.StandardImpl{}, a.tel)
	a.transports, err = fetlife.NewTransportFactory(cfg.TransportConfig, a.tel)
	return err
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}

// asUser runs fn against the logged in session of the selected account and saves
// whatever fn did to it.
func (a *app) asUser(ctx context.Context, fn func(user *fetlife.User) error) error {
	transport, err := a.transports()
	if err != nil {
		return err
	}
	return a.store.Cycle(ctx, a.account, func(account *fetlife.Account) error {
		if !account.Authenticated() {
			return fmt.Errorf("account %q: %w, run login first", a.account, fetlife.ErrNotAuthenticated)
		}
		user := fetlife.NewUser(account, transport, a.tel)
		if err := fn(user); err != nil {
			return err
		}
		if gaps := user.Gaps(); len(gaps) > 0 {
			fmt.Fprintf(a.errOut, "%d entries could not be read, run with -v for details\n", len(gaps))
		}
		return nil
	})
}

// newRootCmd builds the command tree around a fresh app, the caller closes it once
// the command ran.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "fetlife-cli",
		Short:         "fetlife-cli reads events, profiles, writings and messages from FetLife.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.json5", "Path to the config file.")
	root.PersistentFlags().StringVarP(&a.account, "account", "a", "default", "Account whose session is used.")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging.")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		cookiesCmd(a),
		eventsCmd(a),
		eventCmd(a),
		attendeesCmd(a),
		profileCmd(a),
		writingsCmd(a),
		postsCmd(a),
		messagesCmd(a),
		storeCmd(a),
	)
	return root, a
}

func Execute() {
	root, a := newRootCmd()
	err := root.ExecuteContext(context.Background())
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
