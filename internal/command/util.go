package command

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"golang.org/x/term"

	"campushub-backend/internal/auth"
	"campushub-backend/internal/config"
	"campushub-backend/internal/database"
)

type configKey struct{}

// readPassword reads one line from in. When in is a terminal the label is
// written to out and echo is disabled.
func readPassword(in io.Reader, out io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, err := io.WriteString(out, label); err != nil {
			return "", err
		}
		line, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(out, "\n")
		return string(line), err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// version reports the module version, or the short VCS revision for
// development builds.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}

	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return "devel"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "+dirty"
	}
	return revision
}

func loadConfig(ctx context.Context) (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok {
		return nil, nil, nil, errors.New("config file resolution failed")
	}
	logger := slog.Default()
	db, err := database.Open(ctx, logger, database.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

// newSessionService wires the credential store and session service on db
func newSessionService(cfg *config.Config, db *sql.DB, logger *slog.Logger) *auth.Service {
	return auth.NewService(
		auth.NewCredentialStore(database.NewUserRepo(db)),
		database.NewSessionRepo(db),
		auth.SessionConfig{
			TTL:        cfg.Session.TTL,
			MaxPerUser: cfg.Session.MaxPerUser,
		},
		logger,
	)
}
