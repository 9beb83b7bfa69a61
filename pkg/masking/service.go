// Package masking redacts sensitive passenger data (record locators,
// e-ticket numbers, contact details, payment cards) from free text before
// it reaches log lines or persisted disruption records. Created once at
// application startup (singleton). Thread-safe and stateless aside from
// compiled patterns.
package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// builtinPatterns are the masking rules compiled at service construction.
// Each entry targets one kind of passenger-identifying token that appears
// in disruption prompts and agent recommendations.
var builtinPatterns = []struct {
	name        string
	pattern     string
	replacement string
	description string
}{
	{
		name:        "pnr",
		pattern:     `(?i)\b(PNR|record locator|booking reference)([:\s]+)[A-Z0-9]{6}\b`,
		replacement: "$1$2******",
		description: "six-character booking record locator following a PNR label",
	},
	{
		name:        "eticket",
		pattern:     `\b\d{3}-?\d{10}\b`,
		replacement: "***ETICKET***",
		description: "13-digit e-ticket number, with or without airline-prefix dash",
	},
	{
		name:        "email",
		pattern:     `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
		replacement: "***EMAIL***",
		description: "passenger contact email address",
	},
	{
		name:        "phone",
		pattern:     `\+\d{1,3}[\s\-]?\d{2,4}([\s\-]?\d{2,4}){2,3}\b`,
		replacement: "***PHONE***",
		description: "international-format phone number",
	},
	{
		name:        "payment_card",
		pattern:     `\b(?:\d[ -]?){13,16}\b`,
		replacement: "***CARD***",
		description: "13-16 digit payment card number",
	},
}

// Service applies data masking to prompts and persisted disruption
// records. All patterns are compiled eagerly at creation time; invalid
// patterns are logged and skipped.
type Service struct {
	enabled  bool
	patterns []*CompiledPattern
}

// NewService creates a masking service with the selected builtin patterns
// compiled. An empty names list selects every builtin pattern.
func NewService(enabled bool, names []string) *Service {
	s := &Service{enabled: enabled}

	selected := make(map[string]bool, len(names))
	for _, n := range names {
		selected[n] = true
	}

	for _, p := range builtinPatterns {
		if len(selected) > 0 && !selected[p.name] {
			continue
		}
		compiled, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("Failed to compile masking pattern, skipping",
				"pattern", p.name, "error", err)
			continue
		}
		s.patterns = append(s.patterns, &CompiledPattern{
			Name:        p.name,
			Regex:       compiled,
			Replacement: p.replacement,
			Description: p.description,
		})
	}

	slog.Info("Masking service initialized",
		"enabled", enabled,
		"compiled_patterns", len(s.patterns))

	return s
}

// Enabled reports whether masking is active.
func (s *Service) Enabled() bool { return s.enabled }

// Mask applies every compiled pattern to data and returns the redacted
// result. When the service is disabled, data is returned unchanged.
func (s *Service) Mask(data string) string {
	if !s.enabled || data == "" {
		return data
	}
	for _, p := range s.patterns {
		data = p.Regex.ReplaceAllString(data, p.Replacement)
	}
	return data
}

// PatternNames returns the names of the compiled patterns, for the health
// endpoint and startup diagnostics.
func (s *Service) PatternNames() []string {
	out := make([]string, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Name)
	}
	return out
}
