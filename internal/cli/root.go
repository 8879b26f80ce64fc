// Package cli implements the redacao command line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session/boltstore"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/client"
)

// app holds the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	out     io.Writer
	asJSON  bool
	verbose bool

	cfg     *Config
	store   *boltstore.Store
	cache   *session.Cache
	api     *client.Client
	closers []func()
}

func newApp() *app {
	return &app{v: viper.New(), out: os.Stdout}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "redacao",
		Short: "Redação CLI — write and review essays from the terminal",
		Long: `Redação CLI talks to a redação server and keeps the signed-in
user in a local session database.

Get started:
  redacao register --username maria --age 20   Create an account
  redacao login maria                          Sign in
  redacao essays new --titulo "Tema livre"     Start an essay
  redacao essays list --mine                   List your essays`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.open()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.asJSON, "json", false, "Output as JSON")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log session cache activity to stderr")
	flags.String("server", "", "Override server URL (default: from config or "+defaultServerURL+")")
	_ = a.v.BindPFlag("server", flags.Lookup("server"))

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLoginGoogleCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
		newUsersCmd(a),
		newEssaysCmd(a),
		newCommentsCmd(a),
	)
	return root
}

// open loads config, opens the local session store and builds the API client.
func (a *app) open() error {
	cfg, err := LoadConfig(a.v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	store, err := boltstore.Open(cfg.SessionPath())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func() { _ = store.Close() })

	hasher := user.BcryptHasher{Cost: cfg.BcryptCost}
	a.cache = session.NewCache(store, session.WithFallbackHasher(func(pw string) (string, error) {
		h, _, err := hasher.Hash(pw)
		return h, err
	}))
	if a.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		a.closers = append(a.closers, session.LogEvents(a.cache, logger.Sugar()), func() { _ = logger.Sync() })
	}

	token, err := store.Token()
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	a.api = client.NewClient(cfg.ServerURL, token)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// requireAuth returns an error if no token is stored.
func (a *app) requireAuth() error {
	if a.api == nil || a.api.Token == "" {
		return errors.New("not authenticated — run \"redacao login\" first")
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	a := newApp()
	defer a.close()
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
