package models

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidEmail  = errors.New("invalid email")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Represents the lead posted by the landing page dossier form
type LeadSubmission struct {
	FirstName  string            `json:"firstName"`
	LastName   string            `json:"lastName"`
	FullName   string            `json:"fullName"`
	Email      string            `json:"email"`
	Language   string            `json:"language"`
	HubspotUTK string            `json:"hubspotutk"`
	PageURI    string            `json:"pageUri"`
	UTM        map[string]string `json:"utm,omitempty"`

	// The widget has shipped under both spellings.
	AltchaPayload       string `json:"altchaPayload,omitempty"`
	AltchaPayloadLegacy string `json:"altcha_payload,omitempty"`
}

// Validate checks required fields first and the email shape second.
func (l *LeadSubmission) Validate() error {
	if l.FirstName == "" || l.LastName == "" || l.Email == "" || l.HubspotUTK == "" {
		return ErrMissingFields
	}

	if !emailPattern.MatchString(l.Email) {
		return ErrInvalidEmail
	}

	return nil
}

// NormalizedLanguage folds anything but English onto Spanish.
func (l *LeadSubmission) NormalizedLanguage() string {
	if strings.EqualFold(strings.TrimSpace(l.Language), "en") {
		return "en"
	}
	return "es"
}

// Challenge returns whichever proof-of-work payload was sent.
func (l *LeadSubmission) Challenge() string {
	if l.AltchaPayload != "" {
		return l.AltchaPayload
	}
	return l.AltchaPayloadLegacy
}

// DisplayName is the trimmed full name, else first and last name joined.
// Empty when the lead sent neither.
func (l *LeadSubmission) DisplayName() string {
	if name := strings.TrimSpace(l.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// LeadResponse is the aggregate status returned to the landing page
type LeadResponse struct {
	Success        bool    `json:"success"`
	HubspotSuccess bool    `json:"hubspot_success"`
	PDFSuccess     bool    `json:"pdf_success"`
	PDFURL         *string `json:"pdf_url"`
	PDFError       string  `json:"pdf_error,omitempty"`
	Message        string  `json:"message"`
}

// ErrorResponse is the body of every non-200 answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
