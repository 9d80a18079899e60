package config

import "strings"

const legacyFormatWarning = "legacy key=value config format is deprecated; migrate to JSONC"

// Parse decodes configuration content over base. JSONC is the primary
// format; the key=value format from early releases still loads but earns a
// deprecation warning. An empty file means "all defaults" and only runs
// validation.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	case strings.HasPrefix(trimmed, "{"):
		return parseJSONC(content, base)
	default:
		cfg, warnings, err := parseLegacy(content, base)
		if err != nil {
			return Config{}, nil, err
		}
		return cfg, append([]Warning{{Message: legacyFormatWarning}}, warnings...), nil
	}
}
