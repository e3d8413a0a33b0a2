package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"playaviva-leads/pkg/altcha"
	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/middleware"
	"playaviva-leads/pkg/models"
	"playaviva-leads/pkg/services"
	"playaviva-leads/pkg/storage"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	leadService    services.LeadService
	verifier       *altcha.Verifier
	altchaRequired bool
	dossiers       *storage.LocalBackend
	locales        *localization.Service
}

// NewHandlers creates a new Handlers instance. dossiers is nil while object
// storage is the active backend, which disables the local download route.
func NewHandlers(
	leadService services.LeadService,
	verifier *altcha.Verifier,
	altchaRequired bool,
	dossiers *storage.LocalBackend,
	locales *localization.Service,
) *Handlers {
	return &Handlers{
		leadService:    leadService,
		verifier:       verifier,
		altchaRequired: altchaRequired,
		dossiers:       dossiers,
		locales:        locales,
	}
}

func (h *Handlers) errorJSON(c *gin.Context, status int, loc *localization.Localizer, id string) {
	c.JSON(status, models.ErrorResponse{Error: loc.T(id)})
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// AltchaChallenge hands the widget a fresh proof-of-work challenge
func (h *Handlers) AltchaChallenge(c *gin.Context) {
	lg := middleware.Log(c)
	loc := h.locales.Localizer(c.GetHeader("Accept-Language"))

	challenge, err := h.verifier.Issue()
	switch {
	case errors.Is(err, altcha.ErrNoSecret):
		lg.Error("ALTCHA_SECRET is not configured")
		h.errorJSON(c, http.StatusInternalServerError, loc, "altcha_not_configured")
		return
	case err != nil:
		lg.WithError(err).Error("can't create altcha challenge")
		h.errorJSON(c, http.StatusInternalServerError, loc, "altcha_challenge_failed")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, challenge)
}

// SubmitLead validates a lead posted by the landing page and processes it
func (h *Handlers) SubmitLead(c *gin.Context) {
	lg := middleware.Log(c)
	fallback := h.locales.Localizer(localization.DefaultLanguage)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		lg.WithError(err).Error("error reading request body")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   fallback.T("internal_error"),
			Details: err.Error(),
		})
		return
	}

	var lead models.LeadSubmission
	if err := json.Unmarshal(body, &lead); err != nil {
		lg.WithError(err).Error("error parsing JSON")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   fallback.T("internal_error"),
			Details: err.Error(),
		})
		return
	}

	loc := h.locales.Localizer(lead.NormalizedLanguage())

	switch err := lead.Validate(); {
	case errors.Is(err, models.ErrMissingFields):
		h.errorJSON(c, http.StatusBadRequest, loc, "missing_fields")
		return
	case errors.Is(err, models.ErrInvalidEmail):
		h.errorJSON(c, http.StatusBadRequest, loc, "invalid_email")
		return
	}

	if h.altchaRequired {
		payload := lead.Challenge()
		switch {
		case payload == "":
			h.errorJSON(c, http.StatusBadRequest, loc, "altcha_missing")
			return
		case h.verifier.Secret == "":
			lg.Error("ALTCHA_SECRET is not configured")
			h.errorJSON(c, http.StatusInternalServerError, loc, "altcha_not_configured")
			return
		case !h.verifier.Check(c.Request.Context(), lg, payload):
			h.errorJSON(c, http.StatusBadRequest, loc, "altcha_invalid")
			return
		}
	}

	// A lead already accepted is processed even if the browser goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	c.JSON(http.StatusOK, h.leadService.ProcessLead(ctx, lg, &lead))
}

// MethodNotAllowed answers every verb but POST on the submit route
func (h *Handlers) MethodNotAllowed(c *gin.Context) {
	h.errorJSON(c, http.StatusMethodNotAllowed, h.locales.Localizer(localization.DefaultLanguage), "method_not_allowed")
}

// LocalDossier streams a dossier written by the local storage backend
func (h *Handlers) LocalDossier(c *gin.Context) {
	loc := h.locales.Localizer(localization.DefaultLanguage)

	if h.dossiers == nil {
		h.errorJSON(c, http.StatusNotFound, loc, "not_found")
		return
	}

	file := c.Param("file")
	data, err := h.dossiers.Open(file)
	switch {
	case errors.Is(err, storage.ErrInvalidFilename):
		h.errorJSON(c, http.StatusBadRequest, loc, "invalid_filename")
		return
	case err != nil:
		middleware.Log(c).WithError(err).Error("can't read local dossier")
		h.errorJSON(c, http.StatusNotFound, loc, "dossier_not_available")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}
