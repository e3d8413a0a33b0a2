// Package dossier stamps the lead's name onto the Playa Viva brochure and
// stores the result where the lead can download it.
package dossier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/models"
	"playaviva-leads/pkg/storage"
	"playaviva-leads/pkg/utils"
)

const (
	// FieldName is the form field the brochure reserves for the lead's name.
	FieldName = "Nombre_Personalizacion_Lead"

	filenamePrefix = "Dossier_Playa_Viva_"
	maxSafeName    = 60
)

// Templates maps a lead language to its base brochure.
var Templates = map[string]string{
	"es": "Dossier-Playa-Viva-ES.pdf",
	"en": "Dossier-Playa-Viva-EN.pdf",
}

var (
	unsafeRun     = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// Outcome records which personalization path produced the PDF.
type Outcome string

const (
	FieldFilled Outcome = "field_filled"
	TextDrawn   Outcome = "text_drawn"
)

// Result never carries a URL unless Success is set.
type Result struct {
	Success         bool
	URL             *string
	Outcome         Outcome
	Backend         string
	Filename        string
	Error           string
	MissingTemplate bool
}

func failed(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Renderer writes name into a brochure. stamp is the text drawn when the
// brochure has no field to fill.
type Renderer interface {
	Render(template []byte, name, stamp string) ([]byte, Outcome, error)
}

type Personalizer struct {
	TemplateDir string
	Backend     storage.Backend
	Renderer    Renderer
	Locales     *localization.Service

	// NewID is overridable for tests.
	NewID func() string
}

// SanitizeFileName folds a display name into the characters allowed in a
// dossier filename.
func SanitizeFileName(value string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), value)
	if err != nil {
		folded = value
	}

	folded = unsafeRun.ReplaceAllString(folded, "_")
	folded = underscoreRun.ReplaceAllString(folded, "_")
	folded = strings.TrimSpace(folded)

	if len(folded) > maxSafeName {
		folded = folded[:maxSafeName]
	}

	if folded == "" {
		return "lead"
	}
	return folded
}

// TemplatePath returns the base brochure for a language.
func (p *Personalizer) TemplatePath(lang string) string {
	name, ok := Templates[lang]
	if !ok {
		name = Templates[localization.DefaultLanguage]
	}
	return filepath.Join(p.TemplateDir, name)
}

// Personalize never fails loudly: every problem is reported through the
// returned Result.
func (p *Personalizer) Personalize(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission) Result {
	lang := lead.NormalizedLanguage()
	loc := p.Locales.Localizer(lang)
	backend := p.Backend.Name()

	lg = lg.WithFields(logrus.Fields{
		"email_hash": utils.HashEmail(lead.Email),
		"language":   lang,
		"backend":    backend,
	})

	templatePath := p.TemplatePath(lang)
	template, err := os.ReadFile(templatePath)
	if err != nil {
		lg.WithError(err).WithField("template", templatePath).Error("base dossier not available")
		dossiersGenerated.WithLabelValues(backend, "missing_template").Inc()
		res := failed("base PDF not found for language: %s", lang)
		res.MissingTemplate = true
		return res
	}

	name := lead.DisplayName()
	if name == "" {
		name = loc.T("default_display_name")
	}

	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	filename := filenamePrefix + SanitizeFileName(name) + "_" + newID() + ".pdf"

	data, outcome, err := p.Renderer.Render(template, name, loc.Tf("stamp_text", map[string]any{"Name": name}))
	if err != nil {
		lg.WithError(err).Error("can't personalize dossier")
		dossiersGenerated.WithLabelValues(backend, "render_failed").Inc()
		return failed("can't personalize dossier: %v", err)
	}

	url, err := p.Backend.Save(ctx, filename, data)
	if err != nil {
		lg.WithError(err).WithField("filename", filename).Error("can't store dossier")
		dossiersGenerated.WithLabelValues(backend, "store_failed").Inc()
		res := failed("can't store dossier: %v", err)
		res.Outcome = outcome
		res.Backend = backend
		return res
	}

	dossiersGenerated.WithLabelValues(backend, string(outcome)).Inc()
	lg.WithFields(logrus.Fields{
		"filename": filename,
		"outcome":  outcome,
	}).Info("dossier ready")

	return Result{
		Success:  true,
		URL:      &url,
		Outcome:  outcome,
		Backend:  backend,
		Filename: filename,
	}
}
