package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

func sessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session commands",
	}
	cmd.AddCommand(
		sessionsPruneCommand(),
	)
	return cmd
}

func sessionsPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, db, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			n, err := newSessionService(cfg, db, logger).PruneExpired(cmd.Context())
			if err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "pruned expired sessions", slog.Int64("count", n))
			return nil
		},
	}
}
