// Package i18n loads aept's message catalog and translates lookup keys
// used throughout the CLI and engine logging calls.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*
var localeFS embed.FS

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

// SupportedLanguages lists all supported language codes. aept ships a
// single English catalog; the list stays open so more locale files can be
// dropped into locales/ without further code changes.
var SupportedLanguages = []string{"en"}

// Init loads the embedded locale catalog and selects a language. An empty
// lang detects the system language from the environment; an unsupported
// lang falls back to English.
func Init(lang string) error {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	for _, langCode := range SupportedLanguages {
		filename := fmt.Sprintf("locales/%s.yaml", langCode)

		data, err := localeFS.ReadFile(filename)
		if err != nil {
			continue
		}

		if _, err := bundle.ParseMessageFileBytes(data, filename); err != nil {
			return fmt.Errorf("failed to parse locale file %s: %w", filename, err)
		}
	}

	if lang == "" {
		lang = detectSystemLanguage()
	}

	localizer = i18n.NewLocalizer(bundle, lang, "en")

	return nil
}

func detectSystemLanguage() string {
	for _, env := range []string{"LANG", "LC_ALL", "LC_MESSAGES", "LANGUAGE"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}

		langCode := strings.ToLower(strings.Split(val, "_")[0])
		for _, supported := range SupportedLanguages {
			if langCode == supported {
				return langCode
			}
		}
	}

	return "en"
}

// T translates messageID, falling back to the ID itself if i18n hasn't
// been initialized or the ID is unknown. templateData, if given, supplies
// the Go template variables the catalog entry references.
func T(messageID string, templateData ...map[string]any) string {
	if localizer == nil {
		return messageID
	}

	config := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 {
		config.TemplateData = templateData[0]
	}

	translated, err := localizer.Localize(config)
	if err != nil {
		return messageID
	}

	return translated
}
