package hubspot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"playaviva-leads/pkg/models"
)

func TestBuildSubmission(t *testing.T) {
	sub := BuildSubmission(&models.LeadSubmission{
		FirstName:  "Ana",
		LastName:   "Gómez",
		Email:      "ana@example.com",
		Language:   "es",
		HubspotUTK: "abc123",
		PageURI:    "https://site/es",
		UTM:        map[string]string{"utm_source": "google", "utm_medium": "", "utm_campaign": "wynn"},
	})

	want := []Field{
		{"email", "ana@example.com"},
		{"firstname", "Ana"},
		{"lastname", "Gómez"},
		{"mercado_de_origen", "España"},
		{"lead_partner_source", LeadPartnerSource},
		{"utm_campaign", "wynn"},
		{"utm_source", "google"},
	}

	if len(sub.Fields) != len(want) {
		t.Fatalf("wanted %d fields, got %d: %+v", len(want), len(sub.Fields), sub.Fields)
	}
	for i := range want {
		if sub.Fields[i] != want[i] {
			t.Errorf("field %d: wanted %+v, got %+v", i, want[i], sub.Fields[i])
		}
	}

	if sub.Context != (Context{HUTK: "abc123", PageURI: "https://site/es", PageName: PageName}) {
		t.Errorf("unexpected context %+v", sub.Context)
	}

	if en := BuildSubmission(&models.LeadSubmission{Language: "en"}); en.Fields[3].Value != "International" {
		t.Errorf("wanted International market for English leads, got %q", en.Fields[3].Value)
	}
}

func TestSubmitForm(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody Submission
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"inlineMessage":"Thanks"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "123", "form-guid", "secret-token")
	sub := BuildSubmission(&models.LeadSubmission{Email: "ana@example.com", HubspotUTK: "abc123"})

	if err := c.SubmitForm(t.Context(), sub); err != nil {
		t.Fatal(err)
	}

	if gotPath != "/submissions/v3/integration/submit/123/form-guid" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if gotBody.Context.HUTK != "abc123" || gotBody.Fields[0].Value != "ana@example.com" {
		t.Errorf("unexpected body %+v", gotBody)
	}
}

func TestSubmitFormErrors(t *testing.T) {
	for _, tt := range []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"body captured", http.StatusBadRequest, `{"message":"Invalid email"}`, "Invalid email"},
		{"empty body", http.StatusInternalServerError, "", "Internal Server Error"},
		{"not found", http.StatusNotFound, "no such form", "(404)"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					t.Error("authorization sent without a token")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "1", "2", "").SubmitForm(t.Context(), Submission{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("wanted error containing %q, got %v", tt.want, err)
			}
		})
	}
}
