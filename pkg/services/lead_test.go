package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"playaviva-leads/pkg/clients/hubspot"
	"playaviva-leads/pkg/clients/mailer"
	"playaviva-leads/pkg/config"
	"playaviva-leads/pkg/dossier"
	"playaviva-leads/pkg/localization"
	"playaviva-leads/pkg/models"
)

type fakeHubSpot struct {
	err    error
	panics bool
	got    *hubspot.Submission
}

func (f *fakeHubSpot) SubmitForm(_ context.Context, s hubspot.Submission) error {
	if f.panics {
		panic("hubspot exploded")
	}
	f.got = &s
	return f.err
}

type fakePersonalizer struct {
	result dossier.Result
	called bool
}

func (f *fakePersonalizer) Personalize(context.Context, *logrus.Entry, *models.LeadSubmission) dossier.Result {
	f.called = true
	return f.result
}

func (f *fakePersonalizer) TemplatePath(lang string) string {
	return "public/assets/dossier/" + dossier.Templates[lang]
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Name() string { return "fake" }

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		SiteURL:       "https://playaviva.example.com",
		MeetingsURLES: "https://meetings.hubspot.com/tony",
		MailFromES:    "tony@uniestate.co.uk",
		MailNameES:    "Toni - Uniestate Playa Viva",
		MailFromEN:    "michael@uniestate.co.uk",
		MailNameEN:    "Michael - Uniestate Playa Viva",
		AlertEmailES:  "alerts-es@example.com",
		AlertEmailEN:  "alerts-en@example.com",
	}
}

func testEntry() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return logrus.NewEntry(lg)
}

func testLead() *models.LeadSubmission {
	return &models.LeadSubmission{
		FirstName:  "Ana",
		LastName:   "Gómez",
		Email:      "ana@example.com",
		HubspotUTK: "abc123",
		PageURI:    "https://site/es",
		Language:   "es",
	}
}

func successfulDossier(url string) dossier.Result {
	return dossier.Result{Success: true, URL: &url, Outcome: dossier.FieldFilled}
}

func TestProcessLeadSuccess(t *testing.T) {
	crm := &fakeHubSpot{}
	mail := &fakeMailer{}
	svc := NewLeadService(crm, &fakePersonalizer{result: successfulDossier("/api/local-dossiers/x.pdf")},
		map[string]mailer.Client{"es": mail}, nil, localization.Must(), testConfig())

	resp := svc.ProcessLead(t.Context(), testEntry(), testLead())

	if !resp.Success || !resp.HubspotSuccess || !resp.PDFSuccess {
		t.Errorf("wanted full success, got %+v", resp)
	}
	if resp.PDFURL == nil || *resp.PDFURL != "/api/local-dossiers/x.pdf" {
		t.Errorf("unexpected pdf_url %v", resp.PDFURL)
	}
	if resp.Message != "Lead procesado correctamente. Revisa tu email." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if crm.got == nil || crm.got.Context.HUTK != "abc123" {
		t.Errorf("HubSpot did not receive the lead: %+v", crm.got)
	}

	sent := mail.messages()
	if len(sent) != 1 {
		t.Fatalf("wanted one email, got %d", len(sent))
	}
	msg := sent[0]
	if msg.To != "ana@example.com" || msg.From.Email != "tony@uniestate.co.uk" {
		t.Errorf("unexpected addressing %+v", msg)
	}
	if msg.Subject != "Tu dossier de Playa Viva está listo | El Efecto Wynn" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, `href="https://site/api/local-dossiers/x.pdf"`) {
		t.Error("email does not link the absolute dossier URL")
	}
	if !strings.Contains(msg.HTML, "https://meetings.hubspot.com/tony") {
		t.Error("email does not link the meetings page")
	}
}

func TestProcessLeadCRMFailureStillEmails(t *testing.T) {
	mail := &fakeMailer{}
	svc := NewLeadService(&fakeHubSpot{err: errors.New("HubSpot API error (400): bad")},
		&fakePersonalizer{result: successfulDossier("https://signed.example.com/x.pdf")},
		map[string]mailer.Client{"es": mail}, nil, localization.Must(), testConfig())

	resp := svc.ProcessLead(t.Context(), testEntry(), testLead())

	if resp.Success || resp.HubspotSuccess || !resp.PDFSuccess || resp.PDFURL == nil {
		t.Errorf("wanted CRM failure with PDF success, got %+v", resp)
	}
	if resp.Message != "Lead parcialmente procesado. Revisa los registros para más detalle." {
		t.Errorf("unexpected message %q", resp.Message)
	}

	sent := mail.messages()
	if len(sent) != 1 {
		t.Fatalf("wanted the dossier email to be attempted, got %d sends", len(sent))
	}
	if !strings.Contains(sent[0].HTML, "https://signed.example.com/x.pdf") {
		t.Error("absolute URL was rewritten")
	}
}

func TestProcessLeadPDFFailure(t *testing.T) {
	mail := &fakeMailer{}
	svc := NewLeadService(&fakeHubSpot{}, &fakePersonalizer{result: dossier.Result{Error: "can't store dossier: boom"}},
		map[string]mailer.Client{"es": mail}, nil, localization.Must(), testConfig())

	resp := svc.ProcessLead(t.Context(), testEntry(), testLead())

	if resp.Success || !resp.HubspotSuccess || resp.PDFSuccess || resp.PDFURL != nil {
		t.Errorf("wanted PDF failure, got %+v", resp)
	}
	if resp.PDFError != "can't store dossier: boom" {
		t.Errorf("unexpected pdf_error %q", resp.PDFError)
	}
	if len(mail.messages()) != 0 {
		t.Error("email sent without a dossier")
	}
}

func TestProcessLeadPanicsAreContained(t *testing.T) {
	svc := NewLeadService(&fakeHubSpot{panics: true}, &fakePersonalizer{result: successfulDossier("/x.pdf")},
		nil, nil, localization.Must(), testConfig())

	resp := svc.ProcessLead(t.Context(), testEntry(), testLead())

	if resp.HubspotSuccess || !resp.PDFSuccess {
		t.Errorf("a panicking CRM call should only fail its own branch, got %+v", resp)
	}
}

func TestProcessLeadMissingTemplate(t *testing.T) {
	alerts := &fakeMailer{}
	lead := testLead()
	lead.Language = "en"

	svc := NewLeadService(&fakeHubSpot{}, &fakePersonalizer{result: dossier.Result{MissingTemplate: true, Error: "base PDF not found for language: en"}},
		nil, alerts, localization.Must(), testConfig())

	resp := svc.ProcessLead(t.Context(), testEntry(), lead)
	svc.Wait()

	if resp.Success || resp.PDFSuccess {
		t.Errorf("wanted failure, got %+v", resp)
	}
	if resp.Message != "Our personalised dossier is being improved, please try again in a few minutes." {
		t.Errorf("unexpected message %q", resp.Message)
	}

	sent := alerts.messages()
	if len(sent) != 1 {
		t.Fatalf("wanted one alert, got %d", len(sent))
	}
	if sent[0].To != "alerts-en@example.com" || sent[0].Subject != "Playa Viva • Missing dossier base" {
		t.Errorf("unexpected alert %+v", sent[0])
	}
	if !strings.Contains(sent[0].HTML, "Ana Gómez") || !strings.Contains(sent[0].HTML, "Dossier-Playa-Viva-EN.pdf") {
		t.Errorf("alert is missing lead or template details: %s", sent[0].HTML)
	}
}

func TestProcessLeadWithoutMailer(t *testing.T) {
	svc := NewLeadService(&fakeHubSpot{}, &fakePersonalizer{result: successfulDossier("/x.pdf")},
		map[string]mailer.Client{}, nil, localization.Must(), testConfig())

	if resp := svc.ProcessLead(t.Context(), testEntry(), testLead()); !resp.Success {
		t.Errorf("a missing mail provider must not fail the lead, got %+v", resp)
	}
}

func TestProcessLeadEmailFailureSwallowed(t *testing.T) {
	mail := &fakeMailer{err: errors.New("smtp down")}
	svc := NewLeadService(&fakeHubSpot{}, &fakePersonalizer{result: successfulDossier("/x.pdf")},
		map[string]mailer.Client{"es": mail}, nil, localization.Must(), testConfig())

	if resp := svc.ProcessLead(t.Context(), testEntry(), testLead()); !resp.Success {
		t.Errorf("email failure leaked into the response: %+v", resp)
	}
}

func TestAbsoluteURL(t *testing.T) {
	for _, tt := range []struct {
		name, pdfURL, pageURI, want string
	}{
		{"absolute untouched", "https://signed.example.com/a.pdf?X-Amz=1", "https://site/es", "https://signed.example.com/a.pdf?X-Amz=1"},
		{"page origin", "/api/local-dossiers/a.pdf", "https://site:8443/es?utm=1", "https://site:8443/api/local-dossiers/a.pdf"},
		{"site fallback", "/api/local-dossiers/a.pdf", "", "https://playaviva.example.com/api/local-dossiers/a.pdf"},
		{"unparseable page", "/api/local-dossiers/a.pdf", "not a url", "https://playaviva.example.com/api/local-dossiers/a.pdf"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := AbsoluteURL(tt.pdfURL, tt.pageURI, "https://playaviva.example.com/"); got != tt.want {
				t.Errorf("wanted %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderDossierEmail(t *testing.T) {
	lead := testLead()
	lead.FirstName = `<script>alert("x")</script>`

	subject, html, err := renderDossierEmail(localization.Must().Localizer("en"), lead, "https://site/x.pdf", "", "michael@uniestate.co.uk", "https://site")
	if err != nil {
		t.Fatal(err)
	}

	if subject != "Your Playa Viva dossier is ready | The Wynn Effect" {
		t.Errorf("unexpected subject %q", subject)
	}
	if strings.Contains(html, "<script>") {
		t.Error("lead input was not escaped")
	}
	if !strings.Contains(html, "Download my Dossier") {
		t.Error("missing download button label")
	}
	if strings.Contains(html, "Schedule my 15-Minute Consultation") {
		t.Error("meeting button rendered without a meetings URL")
	}
}
