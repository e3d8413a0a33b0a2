package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"playaviva-leads/pkg/clients/hubspot"
	"playaviva-leads/pkg/clients/mailer"
	"playaviva-leads/pkg/config"
	"playaviva-leads/pkg/dossier"
	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/models"
	"playaviva-leads/pkg/utils"
)

const alertTimeout = 30 * time.Second

// Personalizer is satisfied by *dossier.Personalizer
type Personalizer interface {
	Personalize(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission) dossier.Result
	TemplatePath(lang string) string
}

// LeadService defines the interface for handling validated leads
type LeadService interface {
	ProcessLead(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission) models.LeadResponse

	// Wait blocks until background alerts have been sent.
	Wait()
}

type leadServiceImpl struct {
	hubspotClient hubspot.Client
	personalizer  Personalizer
	mailers       map[string]mailer.Client
	alertMailer   mailer.Client
	locales       *localization.Service
	config        *config.Config

	background conc.WaitGroup
}

// NewLeadService creates a new lead service. mailers is keyed by language;
// a language without a mailer gets its dossier link logged instead of sent.
// alertMailer may be nil.
func NewLeadService(
	hubspotClient hubspot.Client,
	personalizer Personalizer,
	mailers map[string]mailer.Client,
	alertMailer mailer.Client,
	locales *localization.Service,
	config *config.Config,
) LeadService {
	return &leadServiceImpl{
		hubspotClient: hubspotClient,
		personalizer:  personalizer,
		mailers:       mailers,
		alertMailer:   alertMailer,
		locales:       locales,
		config:        config,
	}
}

// ProcessLead submits the lead to HubSpot and personalizes its dossier at the
// same time, waits for both regardless of failures, then emails the link.
func (s *leadServiceImpl) ProcessLead(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission) models.LeadResponse {
	lang := lead.NormalizedLanguage()
	loc := s.locales.Localizer(lang)
	lg = lg.WithFields(logrus.Fields{
		"email_hash": utils.HashEmail(lead.Email),
		"language":   lang,
	})

	var (
		crmErr error
		result dossier.Result
		wg     conc.WaitGroup
	)

	wg.Go(func() {
		var pc panics.Catcher
		pc.Try(func() {
			crmErr = s.hubspotClient.SubmitForm(ctx, hubspot.BuildSubmission(lead))
		})
		if r := pc.Recovered(); r != nil {
			crmErr = r.AsError()
		}
	})

	wg.Go(func() {
		var pc panics.Catcher
		pc.Try(func() {
			result = s.personalizer.Personalize(ctx, lg, lead)
		})
		if r := pc.Recovered(); r != nil {
			result = dossier.Result{Error: fmt.Sprintf("dossier personalization panicked: %v", r.Value)}
		}
	})

	wg.Wait()

	hubspotSuccess := crmErr == nil
	if hubspotSuccess {
		crmSubmissions.WithLabelValues("success").Inc()
		lg.Info("lead submitted to HubSpot")
	} else {
		crmSubmissions.WithLabelValues("failure").Inc()
		lg.WithError(crmErr).Error("error submitting lead to HubSpot")
	}

	if result.MissingTemplate {
		s.alertMissingTemplate(ctx, lg, lead, lang)
	}

	if result.Success && result.URL != nil {
		s.sendDossierEmail(ctx, lg, lead, lang, *result.URL)
	}

	response := models.LeadResponse{
		Success:        hubspotSuccess && result.Success,
		HubspotSuccess: hubspotSuccess,
		PDFSuccess:     result.Success,
		PDFError:       result.Error,
	}
	if result.Success {
		response.PDFURL = result.URL
	}

	switch {
	case result.MissingTemplate:
		response.Message = loc.T("dossier_unavailable")
		leadsProcessed.WithLabelValues("missing_template").Inc()
	case response.Success:
		response.Message = loc.T("lead_processed")
		leadsProcessed.WithLabelValues("success").Inc()
	default:
		response.Message = loc.T("lead_partial")
		leadsProcessed.WithLabelValues("partial").Inc()
	}

	return response
}

// sendDossierEmail logs and swallows every failure.
func (s *leadServiceImpl) sendDossierEmail(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission, lang, pdfURL string) {
	absoluteURL := AbsoluteURL(pdfURL, lead.PageURI, s.config.SiteURL)

	client := s.mailers[lang]
	if client == nil {
		emailsSent.WithLabelValues("dossier", "skipped").Inc()
		lg.WithField("url", absoluteURL).Warn("no mail provider configured, dossier link not emailed")
		return
	}

	senderName, senderEmail := s.config.Sender(lang)
	subject, html, err := renderDossierEmail(s.locales.Localizer(lang), lead, absoluteURL, s.config.MeetingsURL(lang), senderEmail, s.config.SiteURL)
	if err != nil {
		emailsSent.WithLabelValues("dossier", "failure").Inc()
		lg.WithError(err).Error("error building dossier email")
		return
	}

	if err := client.Send(ctx, mailer.Message{
		From:    mailer.Sender{Name: senderName, Email: senderEmail},
		To:      lead.Email,
		Subject: subject,
		HTML:    html,
	}); err != nil {
		emailsSent.WithLabelValues("dossier", "failure").Inc()
		lg.WithError(err).WithField("provider", client.Name()).Error("error sending dossier email")
		return
	}

	emailsSent.WithLabelValues("dossier", "success").Inc()
	lg.WithField("provider", client.Name()).Info("dossier email sent")
}

// alertMissingTemplate tells the market's agent the base dossier is gone. It
// does not hold up the response.
func (s *leadServiceImpl) alertMissingTemplate(ctx context.Context, lg *logrus.Entry, lead *models.LeadSubmission, lang string) {
	if s.alertMailer == nil {
		emailsSent.WithLabelValues("alert", "skipped").Inc()
		lg.Info("no mail provider configured, skipping missing dossier alert")
		return
	}

	recipient := s.config.AlertRecipient(lang)
	subject, html, err := renderMissingTemplateAlert(s.locales.Localizer(lang), lead, s.personalizer.TemplatePath(lang), s.config.SiteURL)
	if err != nil {
		emailsSent.WithLabelValues("alert", "failure").Inc()
		lg.WithError(err).Error("error building missing dossier alert")
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.background.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, alertTimeout)
		defer cancel()

		if err := s.alertMailer.Send(ctx, mailer.Message{
			From:    mailer.Sender{Name: "Uniestate Playa Viva", Email: recipient},
			To:      recipient,
			Subject: subject,
			HTML:    html,
		}); err != nil {
			emailsSent.WithLabelValues("alert", "failure").Inc()
			lg.WithError(err).Error("error sending missing dossier alert")
			return
		}

		emailsSent.WithLabelValues("alert", "success").Inc()
		lg.Info("missing dossier alert sent")
	})
}

func (s *leadServiceImpl) Wait() {
	s.background.Wait()
}
