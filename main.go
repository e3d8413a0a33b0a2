package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"playaviva-leads/pkg/altcha"
	"playaviva-leads/pkg/api"
	"playaviva-leads/pkg/clients/hubspot"
	"playaviva-leads/pkg/clients/mailer"
	"playaviva-leads/pkg/config"
	"playaviva-leads/pkg/dossier"
	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/middleware"
	"playaviva-leads/pkg/services"
	"playaviva-leads/pkg/storage"
	"playaviva-leads/pkg/store"

	_ "playaviva-leads/pkg/store/bbolt"
	_ "playaviva-leads/pkg/store/memory"
	_ "playaviva-leads/pkg/store/valkey"
)

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// replayStore builds the optional store that remembers redeemed challenges.
func replayStore(ctx context.Context, cfg *config.Config) (store.Interface, error) {
	var raw json.RawMessage

	switch cfg.AltchaReplayStore {
	case "":
		return nil, nil
	case "bbolt":
		if err := os.MkdirAll(filepath.Dir(cfg.AltchaReplayStorePath), 0o755); err != nil {
			return nil, err
		}
		raw, _ = json.Marshal(map[string]string{"path": cfg.AltchaReplayStorePath})
	case "valkey":
		raw, _ = json.Marshal(map[string]string{"url": cfg.AltchaReplayStoreURL})
	default:
		raw = json.RawMessage("{}")
	}

	return store.Build(ctx, cfg.AltchaReplayStore, raw)
}

func newMailers(cfg *config.Config, log *logrus.Logger) (map[string]mailer.Client, mailer.Client) {
	var resendClient mailer.Client
	if cfg.ResendAPIKey != "" {
		c, err := mailer.NewResendClient(cfg.ResendAPIKey, "")
		if err != nil {
			log.WithError(err).Error("can't create Resend client")
		} else {
			resendClient = c
		}
	}

	mailers := map[string]mailer.Client{}
	for _, lang := range []string{"es", "en"} {
		if cfg.SMTPHost == "" {
			if resendClient != nil {
				mailers[lang] = resendClient
			}
			continue
		}

		user, pass := cfg.SMTPCredentials(lang)
		if user == "" || pass == "" {
			log.WithField("language", lang).Warn("SMTP credentials missing, dossier links will only be logged")
			continue
		}

		mailers[lang] = mailer.NewSMTPClient(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Secure:   cfg.SMTPSecure,
			Username: user,
			Password: pass,
		})
	}

	alerts := resendClient
	if alerts == nil {
		alerts = mailers[localization.DefaultLanguage]
	}

	return mailers, alerts
}

func main() {
	err := godotenv.Load()
	if err != nil {
		logrus.Info("no .env file loaded")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("can't load configuration")
	}

	log := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locales := localization.Must()

	redeemed, err := replayStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("can't build ALTCHA replay store")
	}
	if cfg.AltchaSecret == "" {
		log.Warn("ALTCHA_SECRET is not configured, challenges can't be issued")
	}

	verifier := &altcha.Verifier{
		Secret:   cfg.AltchaSecret,
		TTL:      cfg.ChallengeTTL(),
		Redeemed: redeemed,
	}

	// Initialize API clients
	hubspotClient := hubspot.NewClient(cfg.HubSpotBaseURL, cfg.HubSpotPortalID, cfg.HubSpotFormGUID, cfg.HubSpotToken)
	mailers, alertMailer := newMailers(cfg, log)

	backend := storage.NewBackend(cfg.Storage, cfg.LocalDossierDir)
	local, _ := backend.(*storage.LocalBackend)
	log.WithFields(logrus.Fields{
		"backend":   backend.Name(),
		"local_dir": cfg.LocalDossierDir,
	}).Info("dossier storage selected")

	personalizer := &dossier.Personalizer{
		TemplateDir: cfg.DossierTemplateDir,
		Backend:     backend,
		Renderer:    dossier.NewPDFRenderer(),
		Locales:     locales,
	}

	// Initialize services
	leadService := services.NewLeadService(
		hubspotClient,
		personalizer,
		mailers,
		alertMailer,
		locales,
		cfg,
	)

	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(
		middleware.RequestId(),
		middleware.RequestLogger(log),
		middleware.Recovery(locales.Localizer(localization.DefaultLanguage).T("internal_error")),
		middleware.CORS(cfg.CORSOrigins()...),
	)

	handlers := api.NewHandlers(leadService, verifier, cfg.AltchaRequired, local, locales)
	api.RegisterRoutes(router, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("error starting server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("error shutting down server")
	}
	leadService.Wait()
}
