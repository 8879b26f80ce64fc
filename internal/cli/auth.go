package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/client"
)

func newRegisterCmd(a *app) *cobra.Command {
	var in identity.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				pw, err := readPassword(cmd)
				if err != nil {
					return err
				}
				in.Password = pw
			}
			u, err := a.api.Register(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("registering: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, u)
				return nil
			}
			fmt.Fprintf(a.out, "Conta criada: %s (%s). Faça login para continuar.\n", u.DisplayName(), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted when empty)")
	cmd.Flags().IntVar(&in.Age, "age", 0, "Age")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in with username or e-mail and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if password == "" {
				pw, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = pw
			}
			ctx := cmd.Context()

			res, err := a.api.Login(ctx, username, password)
			if err != nil {
				var apiErr *client.APIError
				if !errors.As(err, &apiErr) {
					if e := a.offlineSession(ctx, username, password); e != nil {
						fmt.Fprintf(a.out, "Servidor indisponível; usando a sessão local de %s.\n", e.DisplayName())
						return nil
					}
				}
				return fmt.Errorf("logging in: %w", err)
			}
			return a.saveSession(ctx, res, username, password)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func newLoginGoogleCmd(a *app) *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with a Google ID token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if credential == "" {
				return errors.New("--credential is required")
			}
			res, err := a.api.LoginGoogle(cmd.Context(), credential)
			if err != nil {
				return fmt.Errorf("logging in with Google: %w", err)
			}
			return a.saveSession(cmd.Context(), res, "", "")
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var e *session.Entry
			if remote {
				if err := a.requireAuth(); err != nil {
					return err
				}
				var err error
				if e, err = a.api.Session(cmd.Context()); err != nil {
					return fmt.Errorf("fetching session: %w", err)
				}
			} else {
				e = a.cache.Read(cmd.Context(), session.DefaultKey)
			}
			if e == nil {
				fmt.Fprintln(a.out, "Nenhuma sessão ativa.")
				return nil
			}
			shown := *e
			shown.PasswordFallback = ""
			if a.asJSON {
				printJSON(a.out, shown)
				return nil
			}
			printEntry(a.out, &shown)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of the local session")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.api.Token != "" {
				var apiErr *client.APIError
				if err := a.api.Logout(ctx); err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %v\n", err)
				}
			}
			if err := a.cache.Clear(ctx, session.DefaultKey); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			if err := a.store.SetToken(""); err != nil {
				return fmt.Errorf("clearing token: %w", err)
			}
			fmt.Fprintln(a.out, "Sessão encerrada.")
			return nil
		},
	}
}

// saveSession stores the server's session entry and token locally.
func (a *app) saveSession(ctx context.Context, res *identity.Result, username, password string) error {
	if res.Session == nil {
		return errors.New("server returned no session")
	}
	if _, err := a.cache.Persist(ctx, session.DefaultKey, &res.Session.User, session.PersistOptions{
		PasswordFallback: password,
		UsernameFallback: username,
	}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if err := a.store.SetToken(res.Token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	if a.asJSON {
		printJSON(a.out, res)
		return nil
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}

// offlineSession returns the local entry when it belongs to username and
// its stored fallback matches password.
func (a *app) offlineSession(ctx context.Context, username, password string) *session.Entry {
	e := a.cache.ReadScopedTo(ctx, session.DefaultKey, entity.Normalize(username))
	if e == nil || e.PasswordFallback == "" || !session.VerifyFallback(e, password) {
		return nil
	}
	return e
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Senha: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
