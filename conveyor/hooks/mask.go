package hooks

import (
	"fmt"
	"regexp"
)

// DefaultPlaceholder replaces masked text.
const DefaultPlaceholder = "***"

// Mask replaces every match of patterns in text with placeholder.
func Mask(text string, patterns []*regexp.Regexp, placeholder string) string {
	for _, re := range patterns {
		text = re.ReplaceAllLiteralString(text, placeholder)
	}
	return text
}

// CompilePatterns compiles sensitive-data patterns.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("hooks: bad sensitive pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
