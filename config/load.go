package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/tsawler/ocroverlay/discovery"
)

// EnvPrefix starts every environment variable read by Load.
const EnvPrefix = "OCROVERLAY_"

// Loader layers settings from several sources. Later sources win:
// defaults, then the JSON settings file, then the .env file, then the
// process environment.
type Loader struct {
	// SettingsFile is a JSON settings file; a missing file is skipped
	SettingsFile string

	// EnvFile is a dotenv file; a missing file is skipped
	EnvFile string

	// LookupEnv reads the environment (default: os.LookupEnv)
	LookupEnv func(key string) (string, bool)
}

// Load reads settingsFile and envFile, applies the environment and
// validates the result. Either path may be empty.
func Load(settingsFile, envFile string) (Settings, error) {
	return Loader{SettingsFile: settingsFile, EnvFile: envFile}.Load()
}

// Load builds and validates the settings.
func (l Loader) Load() (Settings, error) {
	s := Default()

	if l.SettingsFile != "" {
		data, err := os.ReadFile(l.SettingsFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Settings{}, fmt.Errorf("config: reading settings file: %w", err)
		default:
			if err := json.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalid, l.SettingsFile, err)
			}
		}
	}

	dotenv := map[string]string{}
	if l.EnvFile != "" {
		m, err := godotenv.Read(l.EnvFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Settings{}, fmt.Errorf("config: reading env file: %w", err)
		default:
			dotenv = m
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}

	for _, b := range envBindings {
		v, ok := get(b.key)
		if !ok {
			continue
		}
		if err := b.apply(&s, v); err != nil {
			return Settings{}, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, b.key, err)
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

type envBinding struct {
	key   string
	apply func(s *Settings, v string) error
}

func str(p func(*Settings) *string) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		*p(s) = v
		return nil
	}
}

func boolean(p func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*p(s) = b
		return nil
	}
}

func float(p func(*Settings) *float64) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*p(s) = f
		return nil
	}
}

var envBindings = []envBinding{
	{"OCR_SERVER_URL", str(func(s *Settings) *string { return &s.OCRServerURL })},
	{"IMAGE_SERVER_USER", str(func(s *Settings) *string { return &s.ImageServerUser })},
	{"IMAGE_SERVER_PASSWORD", str(func(s *Settings) *string { return &s.ImageServerPassword })},
	{"REDIS_URL", str(func(s *Settings) *string { return &s.RedisURL })},
	{"ANKI_CONNECT_URL", str(func(s *Settings) *string { return &s.AnkiConnectURL })},
	{"ANKI_IMAGE_FIELD", str(func(s *Settings) *string { return &s.AnkiImageField })},
	{"DEBUG_MODE", boolean(func(s *Settings) *bool { return &s.DebugMode })},
	{"TEXT_ORIENTATION", str(func(s *Settings) *string { return &s.TextOrientation })},
	{"FONT_MULTIPLIER_HORIZONTAL", float(func(s *Settings) *float64 { return &s.FontMultiplierHorizontal })},
	{"FONT_MULTIPLIER_VERTICAL", float(func(s *Settings) *float64 { return &s.FontMultiplierVertical })},
	{"BOUNDING_BOX_ADJUSTMENT", float(func(s *Settings) *float64 { return &s.BoundingBoxAdjustment })},
	{"MERGE_MODIFIER_KEY", str(func(s *Settings) *string { return &s.MergeModifierKey })},
	{"DELETE_MODIFIER_KEY", str(func(s *Settings) *string { return &s.DeleteModifierKey })},
	{"ADD_SPACE_ON_MERGE", boolean(func(s *Settings) *bool { return &s.AddSpaceOnMerge })},
	{"AUTO_MERGE_ENABLED", boolean(func(s *Settings) *bool { return &s.AutoMergeEnabled })},
	{"AUTO_MERGE_DIST_K", float(func(s *Settings) *float64 { return &s.AutoMergeDistK })},
	{"AUTO_MERGE_FONT_RATIO", float(func(s *Settings) *float64 { return &s.AutoMergeFontRatio })},
	{"AUTO_MERGE_PERP_TOL", float(func(s *Settings) *float64 { return &s.AutoMergePerpTol })},
	{"AUTO_MERGE_OVERLAP_MIN", float(func(s *Settings) *float64 { return &s.AutoMergeOverlapMin })},
	{"AUTO_MERGE_MIN_LINE_RATIO", float(func(s *Settings) *float64 { return &s.AutoMergeMinLineRatio })},
	{"AUTO_MERGE_FONT_RATIO_FOR_MIXED", float(func(s *Settings) *float64 { return &s.AutoMergeFontRatioForMixed })},
	{"AUTO_MERGE_MIXED_MIN_OVERLAP_RATIO", float(func(s *Settings) *float64 { return &s.AutoMergeMixedMinOverlapRatio })},
	{"SITES", func(s *Settings, v string) error {
		sites, err := discovery.ParseSites(v)
		if err != nil {
			return err
		}
		s.Sites = sites
		return nil
	}},
}

// Save writes s as indented JSON to path.
func Save(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("config: writing settings file: %w", err)
	}
	return nil
}
