// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for different languages.
package localization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultLanguage is used when a user's language has no translations.
const DefaultLanguage = "en"

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer creates and returns a new Localizer instance.
// It loads all translations from the provided directory path.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(path string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		filePath := filepath.Join(path, file.Name())

		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	if len(l.translations) == 0 {
		return nil, fmt.Errorf("no translations found in %s", path)
	}

	return l, nil
}

// Languages returns the loaded language codes in no particular order.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	langs := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		langs = append(langs, lang)
	}
	return langs
}

// Resolve maps a client language code such as "zh-hans" or "en-US" to a
// loaded language, falling back to DefaultLanguage.
func (l *Localizer) Resolve(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.translations[code]; ok {
		return code
	}
	return DefaultLanguage
}

// Format looks up key like GetString and fills it with args.
func (l *Localizer) Format(lang, key string, args ...interface{}) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	// Fallback to a default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}
