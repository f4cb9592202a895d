// Command server runs the CFP voting API.
//
//	@title						CFP Voting API
//	@version					1.0
//	@description				Voting allocation engine for a conference call for proposals.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				HS256 token: "Bearer <token>"
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-cfp-voting/internal/config"
	httpapi "github.com/tbourn/go-cfp-voting/internal/http"
	"github.com/tbourn/go-cfp-voting/internal/mail"
	"github.com/tbourn/go-cfp-voting/internal/observability"
	"github.com/tbourn/go-cfp-voting/internal/repo"
	"github.com/tbourn/go-cfp-voting/internal/sysutil"
)

const (
	serviceName     = "go-cfp-voting"
	shutdownTimeout = 15 * time.Second
	purgeInterval   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, sysutil.FirstNonEmpty(cfg.OTEL.ServiceName, serviceName))
	version := sysutil.BuildVersion("dev")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing goes first so the gorm plugin picks up the global provider.
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version, cfg.Voting.ConferenceName)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	conf, err := repo.EnsureConference(ctx, db, repo.ConferenceSettings{
		Name:           cfg.Voting.ConferenceName,
		ConductEmail:   cfg.Voting.ConductEmail,
		ProposalsBegin: cfg.Voting.ProposalsBegin,
		ProposalsEnd:   cfg.Voting.ProposalsEnd,
		VotingBegin:    cfg.Voting.VotingBegin,
		VotingEnd:      cfg.Voting.VotingEnd,
	})
	if err != nil {
		log.Fatal().Err(err).Str("conference", cfg.Voting.ConferenceName).Msg("bootstrap conference")
	}

	notifier, err := newNotifier(cfg.Mail)
	if err != nil {
		log.Fatal().Err(err).Msg("mail setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, conf.ID, notifier, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return log.Logger.WithContext(context.Background()) },
	}

	go purgeIdempotency(ctx, db)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("conference", conf.Name).
			Bool("voting_open", conf.VotingAllowed(time.Now())).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Let in-flight conduct mails finish before the process exits.
	notifier.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newNotifier picks SMTP delivery when a relay is configured and logging
// otherwise, and always delivers in the background.
func newNotifier(cfg config.MailConfig) (*mail.Async, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	var next mail.Notifier = mail.LogNotifier{Renderer: renderer}
	if cfg.SMTPHost != "" {
		next = mail.NewSMTPNotifier(cfg, renderer)
	}
	return mail.NewAsync(next, cfg.Timeout), nil
}

// purgeIdempotency drops expired idempotency records until ctx ends.
func purgeIdempotency(ctx context.Context, db *gorm.DB) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("purged idempotency records")
			}
		}
	}
}
