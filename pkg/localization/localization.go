// Package localization holds the Spanish and English copy the service
// answers with and mails out.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLanguage is used whenever a lead did not pick a supported one.
const DefaultLanguage = "es"

type Service struct {
	bundle *i18n.Bundle
}

// New loads every embedded locale file.
func New() (*Service, error) {
	bundle := i18n.NewBundle(language.Spanish)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("can't list locales: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
			return nil, fmt.Errorf("can't load locale %s: %w", entry.Name(), err)
		}
	}

	return &Service{bundle: bundle}, nil
}

// Must is New for process start-up, where a broken embedded catalogue is a
// build defect.
func Must() *Service {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}

// Localizer returns a localizer for lang, falling back to Spanish.
func (s *Service) Localizer(lang string) *Localizer {
	return &Localizer{
		Lang:      lang,
		localizer: i18n.NewLocalizer(s.bundle, lang, DefaultLanguage),
	}
}

// Localizer wraps i18n.Localizer with a more convenient API.
type Localizer struct {
	Lang      string
	localizer *i18n.Localizer
}

// T returns the message for id, or id itself when the catalogue lacks it.
func (l *Localizer) T(id string) string {
	return l.Tf(id, nil)
}

// Tf is T with template data.
func (l *Localizer) Tf(id string, data map[string]any) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}
