package models

import (
	"regexp"
	"time"
)

// Setting keys read by the application.
const (
	SettingCompanyName    = "company.name"
	SettingCompanyAddress = "company.address"
	SettingCompanyPhone   = "company.phone"
	SettingCurrency       = "billing.currency"
	SettingDueDays        = "billing.due_days"
)

var settingKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9_]+)*$`)

// SystemSetting is a key/value configuration row editable at runtime.
type SystemSetting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description"`
	Category    string    `json:"category"`
	IsSystem    bool      `json:"is_system"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SettingInput is used for creating/updating settings. Key is taken from the
// path on update.
type SettingInput struct {
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
}

func (s *SettingInput) Validate() string {
	if !settingKeyRe.MatchString(s.Key) {
		return "key must be lowercase dotted identifiers (e.g. billing.due_days)"
	}
	if s.Category == "" {
		s.Category = "general"
	}
	return ""
}

// Language is a UI language with its translation table.
type Language struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	IsActive  bool   `json:"is_active"`
	// Computed
	TranslationCount int `json:"translation_count"`
}

var langCodeRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)

// LanguageInput is used for creating/updating languages.
type LanguageInput struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	IsActive  *bool  `json:"is_active"`
}

func (l *LanguageInput) Validate() string {
	if !langCodeRe.MatchString(l.Code) {
		return "code must look like en or en-US"
	}
	if l.Name == "" {
		return "name is required"
	}
	if l.IsActive == nil {
		active := true
		l.IsActive = &active
	}
	if l.IsDefault && !*l.IsActive {
		return "default language must be active"
	}
	return ""
}

// TranslationsInput upserts a batch of key/value strings for one language.
type TranslationsInput struct {
	Translations map[string]string `json:"translations"`
}

func (t *TranslationsInput) Validate() string {
	if len(t.Translations) == 0 {
		return "translations must not be empty"
	}
	for k := range t.Translations {
		if k == "" || len(k) > 200 {
			return "translation keys must be 1-200 characters"
		}
	}
	return ""
}
