package services

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strings"

	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// alertNames greets the sales agent that owns each market.
var alertNames = map[string]string{
	"es": "Toni",
	"en": "Michael",
}

// AbsoluteURL turns a same-origin dossier path into a link that works from
// an inbox. Absolute URLs are returned untouched.
func AbsoluteURL(pdfURL, pageURI, siteURL string) string {
	if strings.HasPrefix(pdfURL, "http") {
		return pdfURL
	}

	origin := siteURL
	if pageURI != "" {
		if u, err := url.Parse(pageURI); err == nil && u.Scheme != "" && u.Host != "" {
			origin = u.Scheme + "://" + u.Host
		}
	}

	return strings.TrimRight(origin, "/") + pdfURL
}

type dossierEmail struct {
	Greeting       string
	Intro          string
	Effect         string
	DownloadURL    string
	DownloadButton string
	NextStepTitle  string
	NextStepBody   string
	Instructions   string
	MeetingsURL    string
	MeetingButton  string
	Closing        string
	SignOff        string
	Signature      string
	SenderEmail    string
	SiteURL        string
	PSLink         string
	PSAvailability string
	PSMeeting      string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("error rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// renderDossierEmail returns the subject and HTML body of the email carrying
// the download link.
func renderDossierEmail(loc *localization.Localizer, lead *models.LeadSubmission, downloadURL, meetingsURL, senderEmail, siteURL string) (string, string, error) {
	html, err := render("dossier_email.html", dossierEmail{
		Greeting:       loc.Tf("email_greeting", map[string]any{"FirstName": lead.FirstName}),
		Intro:          loc.T("email_intro"),
		Effect:         loc.T("email_effect"),
		DownloadURL:    downloadURL,
		DownloadButton: loc.T("email_download_button"),
		NextStepTitle:  loc.T("email_next_step_title"),
		NextStepBody:   loc.T("email_next_step_body"),
		Instructions:   loc.T("email_instructions"),
		MeetingsURL:    meetingsURL,
		MeetingButton:  loc.T("email_meeting_button"),
		Closing:        loc.T("email_closing"),
		SignOff:        loc.T("email_sign_off"),
		Signature:      loc.T("email_signature"),
		SenderEmail:    senderEmail,
		SiteURL:        strings.TrimRight(siteURL, "/"),
		PSLink:         loc.T("email_ps_link"),
		PSAvailability: loc.T("email_ps_availability"),
		PSMeeting:      loc.T("email_ps_meeting"),
	})
	if err != nil {
		return "", "", err
	}

	return loc.T("email_subject"), html, nil
}

type missingTemplateAlert struct {
	Greeting    string
	Explanation string
	LeadName    string
	LeadEmail   string
	Language    string
	PageURI     string
	Footer      string
}

// renderMissingTemplateAlert returns the subject and HTML body of the alert
// sent when a language's base dossier is absent.
func renderMissingTemplateAlert(loc *localization.Localizer, lead *models.LeadSubmission, templatePath, siteURL string) (string, string, error) {
	leadName := lead.DisplayName()
	if leadName == "" {
		leadName = loc.T("alert_unknown_lead")
	}

	pageURI := lead.PageURI
	if pageURI == "" {
		pageURI = siteURL
	}

	html, err := render("missing_template_alert.html", missingTemplateAlert{
		Greeting:    loc.Tf("alert_greeting", map[string]any{"Name": alertNames[loc.Lang]}),
		Explanation: loc.T("alert_explanation"),
		LeadName:    leadName,
		LeadEmail:   lead.Email,
		Language:    loc.T("alert_language"),
		PageURI:     pageURI,
		Footer: loc.Tf("alert_footer", map[string]any{
			"Template": filepath.Base(templatePath),
			"Dir":      filepath.Dir(templatePath),
		}),
	})
	if err != nil {
		return "", "", err
	}

	return loc.T("alert_subject"), html, nil
}
