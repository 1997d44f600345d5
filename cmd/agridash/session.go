package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// readSecret returns the flag value or, when empty, the first line of in.
func readSecret(value string, in io.Reader) (string, error) {
	if value != "" {
		return value, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user",
		Long:  "Sign in with email and password. Without --password the password is read from stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readSecret(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a.session.Rehydrate(ctx)
			res := a.session.Login(ctx, domain.Credentials{Email: email, Password: pw})
			if !res.Success {
				return errors.New(res.Message)
			}
			user, _ := a.session.User()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(flags *rootFlags) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := readSecret(password, cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := a.session.Register(cmd.Context(), domain.Registration{Name: name, Email: email, Password: pw})
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			user, ok := a.session.CurrentUser(cmd.Context())
			if !ok {
				return errNotSignedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}
