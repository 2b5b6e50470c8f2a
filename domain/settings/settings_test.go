package settings_test

import (
	"testing"

	"github.com/revmura/revmura-suite/domain/settings"
)

func TestSetting_Decode(t *testing.T) {
	s := settings.Setting{Key: settings.KeyModulesEnabled, Value: `["hello","cpt"]`}

	var ids []string
	if err := s.Decode(&ids); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(ids) != 2 || ids[1] != "cpt" {
		t.Errorf("ids = %v", ids)
	}
}

func TestSetting_Display(t *testing.T) {
	s := settings.Setting{Value: "{\n  \"a\": 1,\n  \"b\": 2\n}"}
	if got := s.Display(0); got != `{ "a": 1, "b": 2 }` {
		t.Errorf("Display(0) = %q", got)
	}
	if got := s.Display(8); got != `{ "a"...` {
		t.Errorf("Display(8) = %q", got)
	}
}

func TestOwner(t *testing.T) {
	tests := map[string]string{
		settings.KeySchema:         "cpt",
		settings.KeyMultilang:      "multilang",
		settings.KeyModulesEnabled: "",
		"tls.acme.example.com":     "",
		"plain":                    "",
	}
	for key, want := range tests {
		if got := settings.Owner(key); got != want {
			t.Errorf("Owner(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	tests := map[string]string{
		`["a"]`:   `["a"]`,
		`true`:    `true`,
		`42`:      `42`,
		`hello`:   `"hello"`,
		`{broken`: `"{broken"`,
	}
	for in, want := range tests {
		if got := settings.EncodeValue(in); got != want {
			t.Errorf("EncodeValue(%q) = %q, want %q", in, got, want)
		}
	}
}
