package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tsawler/ocroverlay/anki"
	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
	"github.com/tsawler/ocroverlay/discovery"
	"github.com/tsawler/ocroverlay/edit"
	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/ocrserver"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid settings")

// Orientation setting values.
const (
	OrientationSmart           = "smart"
	OrientationServerAngle     = "serverAngle"
	OrientationForceHorizontal = "forceHorizontal"
	OrientationForceVertical   = "forceVertical"
)

// Settings holds every user preference. JSON names match the settings file
// written by the browser scripts, so an exported file loads unchanged.
type Settings struct {
	OCRServerURL        string `json:"ocrServerUrl"`
	ImageServerUser     string `json:"imageServerUser"`
	ImageServerPassword string `json:"imageServerPassword"`
	RedisURL            string `json:"redisUrl,omitempty"`

	AnkiConnectURL string `json:"ankiConnectUrl"`
	AnkiImageField string `json:"ankiImageField"`

	Sites     []discovery.Site `json:"sites"`
	DebugMode bool             `json:"debugMode"`

	// TextOrientation is smart, serverAngle, forceHorizontal or forceVertical
	TextOrientation          string  `json:"textOrientation"`
	FontMultiplierHorizontal float64 `json:"fontMultiplierHorizontal"`
	FontMultiplierVertical   float64 `json:"fontMultiplierVertical"`
	BoundingBoxAdjustment    float64 `json:"boundingBoxAdjustment"`

	// Presentation preferences, carried for the rendering surface
	InteractionMode      string  `json:"interactionMode"`
	ActivationMode       string  `json:"activationMode"`
	DimmedOpacity        float64 `json:"dimmedOpacity"`
	FocusScaleMultiplier float64 `json:"focusScaleMultiplier"`
	SoloHoverMode        bool    `json:"soloHoverMode"`
	ColorTheme           string  `json:"colorTheme"`
	BrightnessMode       string  `json:"brightnessMode"`

	MergeModifierKey  string `json:"mergeModifierKey"`
	DeleteModifierKey string `json:"deleteModifierKey"`
	AddSpaceOnMerge   bool   `json:"addSpaceOnMerge"`

	AutoMergeEnabled              bool    `json:"autoMergeEnabled"`
	AutoMergeDistK                float64 `json:"autoMergeDistK"`
	AutoMergeFontRatio            float64 `json:"autoMergeFontRatio"`
	AutoMergePerpTol              float64 `json:"autoMergePerpTol"`
	AutoMergeOverlapMin           float64 `json:"autoMergeOverlapMin"`
	AutoMergeMinLineRatio         float64 `json:"autoMergeMinLineRatio"`
	AutoMergeFontRatioForMixed    float64 `json:"autoMergeFontRatioForMixed"`
	AutoMergeMixedMinOverlapRatio float64 `json:"autoMergeMixedMinOverlapRatio"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	cc := cluster.DefaultConfig()
	p := autosize.DefaultPolicy()
	return Settings{
		OCRServerURL:   ocrserver.DefaultBaseURL,
		AnkiConnectURL: anki.DefaultURL,
		AnkiImageField: anki.DefaultImageField,
		Sites:          discovery.DefaultSites(),
		DebugMode:      true,

		TextOrientation:          OrientationSmart,
		FontMultiplierHorizontal: p.HorizontalMultiplier,
		FontMultiplierVertical:   p.VerticalMultiplier,
		BoundingBoxAdjustment:    p.BoxAdjustment,

		InteractionMode:      "hover",
		ActivationMode:       "longPress",
		DimmedOpacity:        0.3,
		FocusScaleMultiplier: 1.1,
		ColorTheme:           "blue",
		BrightnessMode:       "light",

		MergeModifierKey:  "Control",
		DeleteModifierKey: "Alt",

		AutoMergeEnabled:              true,
		AutoMergeDistK:                cc.DistanceK,
		AutoMergeFontRatio:            cc.FontRatio,
		AutoMergePerpTol:              cc.PerpTolerance,
		AutoMergeOverlapMin:           cc.OverlapMin,
		AutoMergeMinLineRatio:         cc.MinLineRatio,
		AutoMergeFontRatioForMixed:    cc.MixedFontRatio,
		AutoMergeMixedMinOverlapRatio: cc.MixedMinOverlapRatio,
	}
}

// Validate reports every problem found, joined into one error wrapping
// ErrInvalid.
func (s Settings) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.OCRServerURL == "" {
		add("ocrServerUrl is required")
	}
	switch s.TextOrientation {
	case OrientationSmart, OrientationServerAngle, OrientationForceHorizontal, OrientationForceVertical:
	default:
		add("unknown textOrientation %q", s.TextOrientation)
	}
	merge, errMerge := edit.ParseModifier(s.MergeModifierKey)
	if errMerge != nil {
		add("mergeModifierKey: %v", errMerge)
	}
	del, errDel := edit.ParseModifier(s.DeleteModifierKey)
	if errDel != nil {
		add("deleteModifierKey: %v", errDel)
	}
	if errMerge == nil && errDel == nil && merge == del {
		add("merge and delete modifier keys must differ")
	}
	if s.DimmedOpacity < 0 || s.DimmedOpacity > 1 {
		add("dimmedOpacity must be within [0,1], got %v", s.DimmedOpacity)
	}
	if s.BoundingBoxAdjustment < 0 {
		add("boundingBoxAdjustment must be non-negative, got %v", s.BoundingBoxAdjustment)
	}
	if err := s.AutosizePolicy().Validate(); err != nil {
		add("%v", err)
	}
	if err := s.ClusterConfig().Validate(); err != nil {
		add("%v", err)
	}
	for i, site := range s.Sites {
		if site.URLPattern == "" {
			add("sites[%d]: urlPattern is required", i)
		}
		if _, err := discovery.NewScanner(site); err != nil {
			add("sites[%d]: %v", i, err)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// ClusterConfig returns the clustering thresholds.
func (s Settings) ClusterConfig() cluster.Config {
	cc := cluster.DefaultConfig()
	cc.DistanceK = s.AutoMergeDistK
	cc.FontRatio = s.AutoMergeFontRatio
	cc.PerpTolerance = s.AutoMergePerpTol
	cc.OverlapMin = s.AutoMergeOverlapMin
	cc.MinLineRatio = s.AutoMergeMinLineRatio
	cc.MixedFontRatio = s.AutoMergeFontRatioForMixed
	cc.MixedMinOverlapRatio = s.AutoMergeMixedMinOverlapRatio
	cc.Separator = s.Separator()
	return cc
}

// Separator returns the text inserted between merged lines.
func (s Settings) Separator() string {
	if s.AddSpaceOnMerge {
		return " "
	}
	return model.ZeroWidthSeparator
}

// AutosizePolicy returns the font fitting policy. The server angle setting
// has no angle data to work from and behaves like smart.
func (s Settings) AutosizePolicy() autosize.Policy {
	p := autosize.DefaultPolicy()
	switch s.TextOrientation {
	case OrientationForceHorizontal:
		p.Mode = autosize.ModeForceHorizontal
	case OrientationForceVertical:
		p.Mode = autosize.ModeForceVertical
	default:
		p.Mode = autosize.ModeSmart
	}
	p.HorizontalMultiplier = s.FontMultiplierHorizontal
	p.VerticalMultiplier = s.FontMultiplierVertical
	p.BoxAdjustment = s.BoundingBoxAdjustment
	return p
}

// Credentials returns the image source credentials forwarded to the OCR
// server.
func (s Settings) Credentials() ocrserver.Credentials {
	return ocrserver.Credentials{User: s.ImageServerUser, Password: s.ImageServerPassword}
}

// Modifiers returns the merge and delete keys.
func (s Settings) Modifiers() (merge, del edit.Modifier, err error) {
	if merge, err = edit.ParseModifier(s.MergeModifierKey); err != nil {
		return edit.ModNone, edit.ModNone, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if del, err = edit.ParseModifier(s.DeleteModifierKey); err != nil {
		return edit.ModNone, edit.ModNone, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return merge, del, nil
}
