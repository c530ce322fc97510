package schema

import "strings"

// Language is a response language the assistant can be asked to answer in.
type Language struct {
	Code           string `json:"code" yaml:"code"`
	Name           string `json:"name" yaml:"name"`
	Directive      string `json:"-" yaml:"-"` // Prepended to every prompt
	UserLabel      string `json:"-" yaml:"-"`
	AssistantLabel string `json:"-" yaml:"-"`
}

// DefaultLanguageCode is used until the user picks another language.
const DefaultLanguageCode = "EN"

var languages = []Language{
	{Code: "RU", Name: "Русский", Directive: "Отвечай на русском. ", UserLabel: "Пользователь", AssistantLabel: "ИИ"},
	{Code: "EN", Name: "English", Directive: "Respond in English. ", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "DE", Name: "Deutsch", Directive: "Antworte auf Deutsch. ", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "FR", Name: "Français", Directive: "Réponds en français. ", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "ES", Name: "Español", Directive: "Responde en español. ", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "UA", Name: "Українська", Directive: "Відповідай українською. ", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "ZH", Name: "中文", Directive: "请用中文回答。", UserLabel: "User", AssistantLabel: "AI"},
	{Code: "JA", Name: "日本語", Directive: "日本語で答えてください。", UserLabel: "User", AssistantLabel: "AI"},
}

// Languages returns the allow-list in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LanguageCodes returns the allow-listed codes in display order.
func LanguageCodes() []string {
	codes := make([]string, 0, len(languages))
	for _, l := range languages {
		codes = append(codes, l.Code)
	}
	return codes
}

// DefaultLanguage returns the English entry.
func DefaultLanguage() Language {
	lang, _ := ParseLanguage(DefaultLanguageCode)
	return lang
}

// ParseLanguage looks up a language code case-insensitively.
func ParseLanguage(code string) (Language, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == normalized {
			return l, nil
		}
	}
	return Language{}, &InvalidSelectionError{
		Field:   "language",
		Value:   code,
		Message: "invalid language code, expected one of " + strings.Join(LanguageCodes(), ", "),
	}
}
