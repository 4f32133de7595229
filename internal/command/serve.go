package command

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campushub-backend/internal/api"
	"campushub-backend/internal/auth"
	"campushub-backend/internal/certs"
	"campushub-backend/internal/config"
	"campushub-backend/internal/observability"
	"campushub-backend/internal/server"
	"campushub-backend/internal/uploads"
)

// sessionPruneInterval is how often expired sessions are swept while serving
const sessionPruneInterval = time.Hour

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the campus community API and web app",
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

			grp, ctx := errgroup.WithContext(cmd.Context())

			e, svc, limiter, err := newApp(ctx, cfg, logger, db)
			if err != nil {
				return err
			}

			grp.Go(func() error {
				limiter.Run(ctx)
				return nil
			})
			grp.Go(func() error {
				pruneSessions(ctx, logger, svc)
				return nil
			})

			serveApp(ctx, grp, cfg, logger, e)
			return grp.Wait()
		},
	}
}

// newApp builds the echo server with every route and middleware installed
func newApp(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*echo.Echo, *auth.Service, *auth.RateLimiter, error) {
	store, err := uploads.New(ctx, uploads.Config{
		Backend: cfg.Uploads.Backend,
		Dir:     cfg.Uploads.Dir,
		S3: uploads.S3Config{
			Bucket:          cfg.Uploads.S3.Bucket,
			Region:          cfg.Uploads.S3.Region,
			Endpoint:        cfg.Uploads.S3.Endpoint,
			AccessKeyID:     cfg.Uploads.S3.AccessKeyID,
			SecretAccessKey: cfg.Uploads.S3.SecretAccessKey,
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}

	svc := newSessionService(cfg, db, logger)
	gate := auth.NewGate(svc, auth.CookieConfig{
		Name:        cfg.Session.CookieName,
		ForceSecure: cfg.Session.ForceSecure,
	}, logger)
	limiter := auth.NewRateLimiter(cfg.Auth.LoginAttempts, cfg.Auth.LoginWindow, cfg.Auth.Lockout)

	var oidc *auth.OIDCAuthenticator
	if o := cfg.Auth.OIDC; o.Enabled {
		oidc, err = auth.NewOIDCAuthenticator(ctx, auth.OIDCConfig{
			IssuerURL:    o.IssuerURL,
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  o.RedirectURL,
			Scopes:       o.Scopes,
			EmailClaim:   o.EmailClaim,
		}, svc.Credentials())
		if err != nil {
			return nil, nil, nil, err
		}
	}

	ipExtractor, err := server.IPExtractor(cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, nil, nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(observability.RequestLogger(logger))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "same-origin",
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, auth.HeaderCSRFToken},
		AllowCredentials: true,
	}))
	if cfg.HTTP.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.HTTP.BodyLimit))
	}

	api.New(api.Deps{
		DB:      db,
		Gate:    gate,
		Limiter: limiter,
		OIDC:    oidc,
		Uploads: store,
		Options: api.Options{
			MinPasswordLength: cfg.Auth.MinPasswordLength,
			MaxImageBytes:     cfg.Uploads.MaxImageBytes,
		},
		Logger: logger,
	}).Register(e.Group("/api"))

	// Serve the single page app, falling back to index.html for client routes
	if cfg.HTTP.StaticDir != "" {
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  cfg.HTTP.StaticDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}

	return e, svc, limiter, nil
}

func pruneSessions(ctx context.Context, logger *slog.Logger, svc *auth.Service) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PruneExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to prune sessions", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "pruned expired sessions", slog.Int64("count", n))
			}
		}
	}
}

func serveApp(
	ctx context.Context,
	grp *errgroup.Group,
	cfg *config.Config,
	logger *slog.Logger,
	srv *echo.Echo,
) {
	addr := cfg.HTTP.Address
	listener, err := listen(ctx, cfg, logger)
	if err != nil {
		grp.Go(func() error { return err })
		return
	}

	logger.InfoContext(ctx,
		"starting app server...",
		slog.String("address", addr),
		slog.Bool("tls", cfg.HTTP.TLS.Enabled),
	)
	server.Serve(ctx, grp, srv.Server, listener, server.ShutdownTimeout)
}

func listen(ctx context.Context, cfg *config.Config, logger *slog.Logger) (net.Listener, error) {
	tlsCfg := cfg.HTTP.TLS
	if !tlsCfg.Enabled {
		return server.Listen(ctx, cfg.HTTP.Address)
	}

	certFile, keyFile := tlsCfg.CertFile, tlsCfg.KeyFile
	if tlsCfg.SelfSigned {
		host, _, _ := net.SplitHostPort(cfg.HTTP.Address)
		var err error
		certFile, keyFile, err = certs.EnsureCertificates(tlsCfg.CertDir, host)
		if err != nil {
			return nil, err
		}
		logger.WarnContext(ctx, "serving with a self-signed certificate", slog.String("cert", certFile))
	}
	return server.ListenTLS(ctx, cfg.HTTP.Address, certFile, keyFile)
}
