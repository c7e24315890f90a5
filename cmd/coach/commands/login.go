package commands

import (
	"errors"
	"fmt"

	"github.com/jpkmiller/coach/internal/logger"
	"github.com/spf13/cobra"
)

// NewLoginCmd obtains and persists a backend session token.
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the coach backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, zapLogger, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
				_ = logger.Sync(zapLogger)
			}()

			if !a.Users.Login(ctx, username, password) {
				return errors.New("login failed")
			}
			fmt.Println("Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Backend username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Backend password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
