package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"playaviva-leads/pkg/models"
)

const (
	DefaultBaseURL  = "https://api.hsforms.com"
	DefaultPortalID = "147219365"
	DefaultFormGUID = "34afefab-a031-4516-838e-f0edf0b98bc7"

	PageName          = "Playa Viva Dossier Download"
	LeadPartnerSource = "Partner_Landing_ES_Playa_Viva"
)

// Field is one name/value pair of a form submission
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Context carries the attribution HubSpot ties the submission to
type Context struct {
	HUTK     string `json:"hutk"`
	PageURI  string `json:"pageUri"`
	PageName string `json:"pageName"`
}

type Submission struct {
	Fields  []Field `json:"fields"`
	Context Context `json:"context"`
}

// Client defines the interface for interacting with the HubSpot Forms API
type Client interface {
	SubmitForm(ctx context.Context, submission Submission) error
}

type clientImpl struct {
	baseURL    string
	portalID   string
	formGUID   string
	token      string
	httpClient *http.Client
}

// NewClient creates a new HubSpot forms client. token is optional.
func NewClient(baseURL, portalID, formGUID, token string) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &clientImpl{
		baseURL:    strings.TrimRight(baseURL, "/"),
		portalID:   portalID,
		formGUID:   formGUID,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BuildSubmission maps a lead onto the dossier form. Campaign pairs with an
// empty value are skipped.
func BuildSubmission(lead *models.LeadSubmission) Submission {
	market := "International"
	if lead.NormalizedLanguage() == "es" {
		market = "España"
	}

	fields := []Field{
		{Name: "email", Value: lead.Email},
		{Name: "firstname", Value: lead.FirstName},
		{Name: "lastname", Value: lead.LastName},
		{Name: "mercado_de_origen", Value: market},
		{Name: "lead_partner_source", Value: LeadPartnerSource},
	}

	keys := make([]string, 0, len(lead.UTM))
	for k := range lead.UTM {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v := lead.UTM[k]; v != "" {
			fields = append(fields, Field{Name: k, Value: v})
		}
	}

	return Submission{
		Fields: fields,
		Context: Context{
			HUTK:     lead.HubspotUTK,
			PageURI:  lead.PageURI,
			PageName: PageName,
		},
	}
}

func (c *clientImpl) SubmitForm(ctx context.Context, submission Submission) error {
	endpoint := fmt.Sprintf("%s/submissions/v3/integration/submit/%s/%s",
		c.baseURL, url.PathEscape(c.portalID), url.PathEscape(c.formGUID))

	jsonPayload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Add("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error submitting HubSpot form: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("HubSpot API error (%d): %s", resp.StatusCode, detail)
	}

	return nil
}
