package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretExprs are regex heuristics for common secret shapes. Diff text
// runs through every one of them before crossing the analysis boundary.
var secretExprs = []string{
	// generic API keys in assignments
	`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`,
	// AWS access key IDs and secret access keys
	`AKIA[0-9A-Z]{16}`,
	`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`,
	// generic secrets/tokens/passwords in assignments
	`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`,
	// bearer tokens
	`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`,
	// JWTs
	`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
	// private key blocks
	`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`,
	// GitHub, Slack, Anthropic, OpenAI tokens
	`gh[pousr]_[A-Za-z0-9_]{36,}`,
	`xox[bporas]-[A-Za-z0-9-]{10,}`,
	`sk-ant-[A-Za-z0-9_-]{20,}`,
	`sk-[A-Za-z0-9]{20,}`,
	// long hex strings in key-ish assignments
	`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`,
}

var secretPatterns = compile(secretExprs)

func compile(exprs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		patterns[i] = regexp.MustCompile(e)
	}
	return patterns
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, placeholder)
	}
	return result
}

// ShouldRedactPath checks if a file path matches any of the redaction path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		// Patterns like "**/.env" also match on the bare filename.
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Content redacts secrets from content and replaces the entire content
// when the file path matches a redaction pattern.
func Content(content, path string, redactPaths []string) string {
	if ShouldRedactPath(path, redactPaths) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	return Secrets(content)
}
