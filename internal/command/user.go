package command

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"campushub-backend/internal/models"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var candidate models.User
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Registers a user with the provided username and profile fields. Passwords may be\n" +
			"provided via stdin or through the interactive prompt.",

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, logger, db, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			candidate.Username = args[0]
			passwd, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "password: ")
			if err != nil {
				return err
			}
			if utf8.RuneCountInString(passwd) < cfg.Auth.MinPasswordLength {
				return fmt.Errorf("password must be at least %d characters", cfg.Auth.MinPasswordLength)
			}

			svc := newSessionService(cfg, db, logger)
			principal, err := svc.Credentials().Register(cmd.Context(), &candidate, passwd)
			if err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "created user",
				slog.String("name", principal.Username),
				slog.Int64("id", principal.ID),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&candidate.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&candidate.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&candidate.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&candidate.Campus, "campus", "", "campus (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("campus")
	return cmd
}
