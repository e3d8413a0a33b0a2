package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"playaviva-leads/pkg/clients/hubspot"
	"playaviva-leads/pkg/storage"
)

const (
	DefaultSiteURL     = "https://playaviva-uniestate.vercel.app"
	DefaultTemplateDir = "public/assets/dossier"
)

// Config holds all application configuration values
type Config struct {
	Port               string `mapstructure:"PORT"`
	GinMode            string `mapstructure:"GIN_MODE"`
	LogLevel           string `mapstructure:"LOG_LEVEL"`
	Env                string `mapstructure:"APP_ENV"`
	SiteURL            string `mapstructure:"SITE_URL"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	HubSpotPortalID string `mapstructure:"HUBSPOT_PORTAL_ID"`
	HubSpotFormGUID string `mapstructure:"HUBSPOT_FORM_GUID"`
	HubSpotToken    string `mapstructure:"HUBSPOT_PRIVATE_APP_TOKEN"`
	HubSpotBaseURL  string `mapstructure:"HUBSPOT_API_BASE_URL"`
	MeetingsURLES   string `mapstructure:"HUBSPOT_MEETINGS_URL_ES"`
	MeetingsURLEN   string `mapstructure:"HUBSPOT_MEETINGS_URL_EN"`

	AltchaSecret          string `mapstructure:"ALTCHA_SECRET"`
	AltchaChallengeTTL    int    `mapstructure:"ALTCHA_CHALLENGE_TTL"`
	AltchaRequired        bool   `mapstructure:"ALTCHA_REQUIRED"`
	AltchaReplayStore     string `mapstructure:"ALTCHA_REPLAY_STORE"`
	AltchaReplayStorePath string `mapstructure:"ALTCHA_REPLAY_STORE_PATH"`
	AltchaReplayStoreURL  string `mapstructure:"ALTCHA_REPLAY_STORE_URL"`

	DossierTemplateDir string `mapstructure:"DOSSIER_TEMPLATE_DIR"`
	AlertEmailES       string `mapstructure:"DOSSIER_ALERT_EMAIL_ES"`
	AlertEmailEN       string `mapstructure:"DOSSIER_ALERT_EMAIL_EN"`

	SMTPHost   string `mapstructure:"SMTP_HOST"`
	SMTPPort   int    `mapstructure:"SMTP_PORT"`
	SMTPSecure bool   `mapstructure:"SMTP_SECURE"`
	SMTPUser   string `mapstructure:"SMTP_USER"`
	SMTPPass   string `mapstructure:"SMTP_PASS"`
	SMTPUserES string `mapstructure:"SMTP_USER_ES"`
	SMTPPassES string `mapstructure:"SMTP_PASS_ES"`
	SMTPUserEN string `mapstructure:"SMTP_USER_EN"`
	SMTPPassEN string `mapstructure:"SMTP_PASS_EN"`

	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	MailFromES   string `mapstructure:"MAIL_FROM_ES"`
	MailFromEN   string `mapstructure:"MAIL_FROM_EN"`
	MailNameES   string `mapstructure:"MAIL_FROM_NAME_ES"`
	MailNameEN   string `mapstructure:"MAIL_FROM_NAME_EN"`

	// Resolved from several legacy spellings, see storage.ResolveConfig.
	Storage         storage.Config `mapstructure:"-"`
	LocalDossierDir string         `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SITE_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("HUBSPOT_PORTAL_ID", "")
	v.SetDefault("HUBSPOT_FORM_GUID", hubspot.DefaultFormGUID)
	v.SetDefault("HUBSPOT_PRIVATE_APP_TOKEN", "")
	v.SetDefault("HUBSPOT_API_BASE_URL", hubspot.DefaultBaseURL)
	v.SetDefault("HUBSPOT_MEETINGS_URL_ES", "")
	v.SetDefault("HUBSPOT_MEETINGS_URL_EN", "")

	v.SetDefault("ALTCHA_SECRET", "")
	v.SetDefault("ALTCHA_CHALLENGE_TTL", 300)
	v.SetDefault("ALTCHA_REQUIRED", false)
	v.SetDefault("ALTCHA_REPLAY_STORE", "")
	v.SetDefault("ALTCHA_REPLAY_STORE_PATH", "data/altcha.bdb")
	v.SetDefault("ALTCHA_REPLAY_STORE_URL", "")

	v.SetDefault("DOSSIER_TEMPLATE_DIR", DefaultTemplateDir)
	v.SetDefault("DOSSIER_ALERT_EMAIL_ES", "tony@uniestate.co.uk")
	v.SetDefault("DOSSIER_ALERT_EMAIL_EN", "michael@uniestate.co.uk")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_SECURE", false)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_USER_ES", "")
	v.SetDefault("SMTP_PASS_ES", "")
	v.SetDefault("SMTP_USER_EN", "")
	v.SetDefault("SMTP_PASS_EN", "")

	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("MAIL_FROM_ES", "tony@uniestate.co.uk")
	v.SetDefault("MAIL_FROM_EN", "michael@uniestate.co.uk")
	v.SetDefault("MAIL_FROM_NAME_ES", "Toni - Uniestate Playa Viva")
	v.SetDefault("MAIL_FROM_NAME_EN", "Michael - Uniestate Playa Viva")
}

// envGetter prefers the exact process environment so mixed-case legacy keys
// stay distinct, then falls back to viper.
type envGetter struct {
	v *viper.Viper
}

func (e envGetter) GetString(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return e.v.GetString(key)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: can't decode: %w", err)
	}

	cfg.SiteURL = strings.TrimRight(firstNonEmpty(cfg.SiteURL, v.GetString("NEXT_PUBLIC_SITE_URL"), DefaultSiteURL), "/")
	cfg.HubSpotPortalID = firstNonEmpty(cfg.HubSpotPortalID, v.GetString("NEXT_PUBLIC_HUBSPOT_PORTAL_ID"), hubspot.DefaultPortalID)

	getter := envGetter{v: v}
	cfg.Storage = storage.ResolveConfig(getter)
	cfg.LocalDossierDir = storage.LocalDossierDir(getter)

	if cfg.Port == "" {
		return nil, errors.New("config: PORT must be set")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return nil, fmt.Errorf("config: SMTP_PORT %d is out of range", cfg.SMTPPort)
	}

	switch cfg.AltchaReplayStore {
	case "", "memory", "bbolt", "valkey":
	default:
		return nil, fmt.Errorf("config: unknown ALTCHA_REPLAY_STORE %q", cfg.AltchaReplayStore)
	}

	return &cfg, nil
}

// ChallengeTTL is how long a minted challenge stays solvable.
func (c *Config) ChallengeTTL() time.Duration {
	if c.AltchaChallengeTTL <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.AltchaChallengeTTL) * time.Second
}

// SMTPCredentials returns the language-specific login, falling back to the
// shared one.
func (c *Config) SMTPCredentials(lang string) (string, string) {
	if lang == "en" && c.SMTPUserEN != "" {
		return c.SMTPUserEN, c.SMTPPassEN
	}
	if lang == "es" && c.SMTPUserES != "" {
		return c.SMTPUserES, c.SMTPPassES
	}
	return c.SMTPUser, c.SMTPPass
}

func (c *Config) MeetingsURL(lang string) string {
	if lang == "en" {
		return c.MeetingsURLEN
	}
	return c.MeetingsURLES
}

// Sender returns the mailbox dossier emails for lang are sent from.
func (c *Config) Sender(lang string) (name, email string) {
	if lang == "en" {
		return c.MailNameEN, c.MailFromEN
	}
	return c.MailNameES, c.MailFromES
}

// AlertRecipient returns who hears about a missing base dossier for lang.
func (c *Config) AlertRecipient(lang string) string {
	if lang == "en" {
		return c.AlertEmailEN
	}
	return c.AlertEmailES
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, p := range strings.Split(c.CORSAllowedOrigins, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
