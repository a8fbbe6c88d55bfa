// Package i18n holds every user-facing string of the client in an
// embedded go-i18n bundle. English and Chinese are shipped.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Message IDs.
const (
	MsgPermissionPending  = "permission_pending"
	MsgPermissionDenied   = "permission_denied"
	MsgAlertTitle         = "alert_title"
	MsgConnectionFailed   = "alert_connection_failed"
	MsgInvalidMenu        = "alert_invalid_menu"
	MsgNoLocation         = "alert_no_location"
	MsgLocating           = "status_locating"
	MsgLocation           = "status_location"
	MsgLoading            = "status_loading"
	MsgSpeaking           = "status_speaking"
	MsgListening          = "status_listening"
	MsgNothingToReplay    = "status_nothing_to_replay"
	MsgNoPhoto            = "status_no_photo"
	MsgPhoto              = "status_photo"
	MsgStoryTitle         = "title_story"
	MsgMenuTitle          = "title_menu"
	MsgModeExplore        = "mode_explore"
	MsgModeMenu           = "mode_menu"
	MsgFieldPeople        = "field_people"
	MsgFieldBudget        = "field_budget"
	MsgFieldTaste         = "field_taste"
	MsgHelpExplore        = "help_explore"
	MsgHelpMenu           = "help_menu"
	MsgHelpForm           = "help_form"
	MsgBackendUnreachable = "status_backend_unreachable"
	MsgNothingHeard       = "status_nothing_heard"
	MsgGuideExploreOnly   = "status_guide_explore_only"
	MsgSpeakingText       = "status_speaking_text"
)

// Supported lists the shipped languages, default first.
var Supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(Supported)

// ParseLang maps a user setting such as "zh", "zh-CN" or "en_US" to a
// shipped language.
func ParseLang(s string) (language.Tag, error) {
	if s == "" {
		return language.English, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("i18n: %q: %w", s, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, fmt.Errorf("i18n: unsupported language %q", s)
	}
	return Supported[idx], nil
}

// Translator resolves message IDs for one language.
type Translator struct {
	lang      language.Tag
	localizer *i18n.Localizer
}

// New loads the embedded bundle and returns a translator for lang.
func New(lang language.Tag) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, name := range []string{"locales/en.json", "locales/zh.json"} {
		if _, err := bundle.LoadMessageFileFS(locales, name); err != nil {
			return nil, fmt.Errorf("i18n: loading %s: %w", name, err)
		}
	}

	return &Translator{
		lang:      lang,
		localizer: i18n.NewLocalizer(bundle, lang.String()),
	}, nil
}

// Lang returns the translator's language.
func (t *Translator) Lang() language.Tag { return t.lang }

// T returns the message for id, or id itself if it is unknown.
func (t *Translator) T(id string) string {
	return t.Tf(id, nil)
}

// Tf is T with template data.
func (t *Translator) Tf(id string, data map[string]any) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return msg
}
