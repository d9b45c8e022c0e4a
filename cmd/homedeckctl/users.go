package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"homedeck/internal/access"
	"homedeck/internal/auth"
	"homedeck/internal/profiles"
)

// readPassword reads a password from the terminal without echoing it. When
// stdin is not a terminal the next line is read instead.
var readPassword = func(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts and access levels",
	}
	cmd.AddCommand(newUsersCreateCmd(), newUsersSetAccessCmd(), newUsersListCmd())
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	var email, level string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a confirmed account with a profile",
		Long: `Create a confirmed account and its profile. The password is read from
the terminal. Use --level owner to bootstrap the first owner.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := access.ParseLevel(level)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := readPassword(cmd.InOrStdin())
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			ctx := cmd.Context()
			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			svc := auth.NewService(database, nil, nil, auth.Options{})
			account, err := svc.CreateAccount(ctx, email, password, true)
			if err != nil {
				return err
			}
			repo := profiles.NewRepository(database)
			if _, err := repo.Ensure(ctx, account.ID, account.Email); err != nil {
				return err
			}
			if lvl != access.LevelUser {
				if err := repo.SetAccessLevel(ctx, account.ID, lvl); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with access level %s\n", account.Email, account.ID, lvl)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&level, "level", string(access.LevelUser), "access level (user, moderator, admin, owner)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersSetAccessCmd() *cobra.Command {
	var id, email, level string

	cmd := &cobra.Command{
		Use:   "set-access",
		Short: "Change the access level of a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := access.ParseLevel(level)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			if id == "" {
				account, err := auth.NewService(database, nil, nil, auth.Options{}).FindAccount(ctx, email)
				if err != nil {
					return err
				}
				id = account.ID
			}
			if err := profiles.NewRepository(database).SetAccessLevel(ctx, id, lvl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", id, lvl)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "profile id")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&level, "level", "", "access level (user, moderator, admin, owner)")
	cmd.MarkFlagsOneRequired("id", "email")
	cmd.MarkFlagsMutuallyExclusive("id", "email")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles with their access level",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			list, err := profiles.NewRepository(database).List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tUSERNAME\tLEVEL\tAPPS")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Email, p.Username, p.AccessLevel, len(p.Apps))
			}
			return tw.Flush()
		},
	}
}
