package localization

import (
	"encoding/json"
	"sort"
	"testing"
)

func TestLocalization(t *testing.T) {
	service := Must()

	for _, tt := range []struct {
		lang, id, want string
		data           map[string]any
	}{
		{lang: "es", id: "missing_fields", want: "Campos obligatorios faltantes"},
		{lang: "es", id: "invalid_email", want: "Email inválido"},
		{lang: "es", id: "lead_processed", want: "Lead procesado correctamente. Revisa tu email."},
		{lang: "en", id: "default_display_name", want: "Investor"},
		{lang: "es", id: "default_display_name", want: "Inversor Playa Viva"},
		{lang: "en", id: "stamp_text", want: "Personalized for Ana Gómez", data: map[string]any{"Name": "Ana Gómez"}},
		{lang: "es", id: "email_greeting", want: "Hola Ana,", data: map[string]any{"FirstName": "Ana"}},
		{lang: "fr", id: "invalid_email", want: "Email inválido"},
		{lang: "en", id: "no_such_message", want: "no_such_message"},
	} {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			if got := service.Localizer(tt.lang).Tf(tt.id, tt.data); got != tt.want {
				t.Errorf("wanted %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	keys := func(name string) []string {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatal(err)
		}

		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("%s: %v", name, err)
		}

		var result []string
		for k, v := range m {
			if v == "" {
				t.Errorf("%s: %s is empty", name, k)
			}
			result = append(result, k)
		}
		sort.Strings(result)
		return result
	}

	es, en := keys("es.json"), keys("en.json")
	if len(es) != len(en) {
		t.Fatalf("es has %d keys, en has %d", len(es), len(en))
	}
	for i := range es {
		if es[i] != en[i] {
			t.Errorf("key mismatch: es %q, en %q", es[i], en[i])
		}
	}
}
