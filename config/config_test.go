package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
	"github.com/tsawler/ocroverlay/edit"
	"github.com/tsawler/ocroverlay/model"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if !reflect.DeepEqual(s.ClusterConfig(), cluster.DefaultConfig()) {
		t.Errorf("Expected default cluster config, got %+v", s.ClusterConfig())
	}
	if !reflect.DeepEqual(s.AutosizePolicy(), autosize.DefaultPolicy()) {
		t.Errorf("Expected default policy, got %+v", s.AutosizePolicy())
	}
	merge, del, err := s.Modifiers()
	if err != nil {
		t.Fatalf("Modifiers failed: %v", err)
	}
	if merge != edit.ModControl || del != edit.ModAlt {
		t.Errorf("Expected Control/Alt, got %s/%s", merge, del)
	}
	if !s.Credentials().IsZero() {
		t.Error("Expected no credentials by default")
	}
}

func TestDerivedValues(t *testing.T) {
	s := Default()
	s.AddSpaceOnMerge = true
	s.TextOrientation = OrientationForceVertical
	s.FontMultiplierVertical = 0.8
	s.AutoMergeDistK = 2
	s.ImageServerUser = "u"
	s.ImageServerPassword = "p"

	if got := s.ClusterConfig(); got.Separator != " " || got.DistanceK != 2 {
		t.Errorf("Expected space separator and DistanceK 2, got %q and %v", got.Separator, got.DistanceK)
	}
	p := s.AutosizePolicy()
	if p.Mode != autosize.ModeForceVertical || p.VerticalMultiplier != 0.8 {
		t.Errorf("Expected forced vertical at 0.8, got %s at %v", p.Mode, p.VerticalMultiplier)
	}
	if c := s.Credentials(); c.User != "u" || c.Password != "p" {
		t.Errorf("Expected credentials u/p, got %+v", c)
	}

	s.AddSpaceOnMerge = false
	if s.Separator() != model.ZeroWidthSeparator {
		t.Errorf("Expected zero-width separator, got %q", s.Separator())
	}
	s.TextOrientation = OrientationServerAngle
	if s.AutosizePolicy().Mode != autosize.ModeSmart {
		t.Error("Expected server angle to behave like smart")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"empty server", func(s *Settings) { s.OCRServerURL = "" }},
		{"bad orientation", func(s *Settings) { s.TextOrientation = "diagonal" }},
		{"bad merge key", func(s *Settings) { s.MergeModifierKey = "Hyper" }},
		{"same keys", func(s *Settings) { s.DeleteModifierKey = "ctrl" }},
		{"opacity", func(s *Settings) { s.DimmedOpacity = 1.5 }},
		{"multiplier", func(s *Settings) { s.FontMultiplierHorizontal = 0 }},
		{"font ratio", func(s *Settings) { s.AutoMergeFontRatio = 0.5 }},
		{"site selector", func(s *Settings) { s.Sites[0].ImageContainerSelectors = []string{"div > "} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.modify(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestValidate_SiteSelectors(t *testing.T) {
	s := Default()
	s.Sites[0].ImageContainerSelectors = []string{"div.reader img", "#root > div.page", "div:not(.ad)"}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected combinator and pseudo-class selectors to validate, got %v", err)
	}
}

func TestLoad_Layers(t *testing.T) {
	settings := writeFile(t, "settings.json", `{
		"ocrServerUrl": "http://from-file:3000",
		"ankiImageField": "Picture",
		"autoMergeDistK": 1.5,
		"debugMode": false
	}`)
	dotenv := writeFile(t, ".env", "OCROVERLAY_ANKI_IMAGE_FIELD=Front\nOCROVERLAY_ADD_SPACE_ON_MERGE=true\n")

	l := Loader{
		SettingsFile: settings,
		EnvFile:      dotenv,
		LookupEnv: envMap(map[string]string{
			"OCROVERLAY_OCR_SERVER_URL":   "http://from-env:3000",
			"OCROVERLAY_ANKI_IMAGE_FIELD": "Back",
		}),
	}
	s, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.OCRServerURL != "http://from-env:3000" {
		t.Errorf("Expected environment to win, got %s", s.OCRServerURL)
	}
	if s.AnkiImageField != "Back" {
		t.Errorf("Expected environment over .env, got %s", s.AnkiImageField)
	}
	if !s.AddSpaceOnMerge {
		t.Error("Expected .env to set AddSpaceOnMerge")
	}
	if s.AutoMergeDistK != 1.5 || s.DebugMode {
		t.Errorf("Expected file values, got DistK %v debug %v", s.AutoMergeDistK, s.DebugMode)
	}
	if s.AnkiConnectURL != Default().AnkiConnectURL {
		t.Errorf("Expected default Anki URL, got %s", s.AnkiConnectURL)
	}
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	l := Loader{
		SettingsFile: filepath.Join(dir, "missing.json"),
		EnvFile:      filepath.Join(dir, "missing.env"),
		LookupEnv:    noEnv,
	}
	s, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(s, Default()) {
		t.Errorf("Expected defaults, got %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := writeFile(t, "bad.json", `{"ocrServerUrl": `)
	if _, err := (Loader{SettingsFile: bad, LookupEnv: noEnv}).Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for malformed JSON, got %v", err)
	}

	l := Loader{LookupEnv: envMap(map[string]string{"OCROVERLAY_AUTO_MERGE_DIST_K": "far"})}
	if _, err := l.Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for bad number, got %v", err)
	}

	l = Loader{LookupEnv: envMap(map[string]string{"OCROVERLAY_TEXT_ORIENTATION": "sideways"})}
	if _, err := l.Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for bad orientation, got %v", err)
	}
}

func TestLoad_Sites(t *testing.T) {
	l := Loader{LookupEnv: envMap(map[string]string{
		"OCROVERLAY_SITES": "reader.local; ; div.page; #app",
	})}
	s, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Sites) != 1 || s.Sites[0].URLPattern != "reader.local" || s.Sites[0].ContentRootSelector != "#app" {
		t.Errorf("Expected reader.local site, got %+v", s.Sites)
	}
}

func TestSaveLoad(t *testing.T) {
	s := Default()
	s.ColorTheme = "red"
	s.AutoMergeEnabled = false
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := Save(path, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Loader{SettingsFile: path, LookupEnv: noEnv}.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("Expected saved settings back, got %+v", got)
	}
}
