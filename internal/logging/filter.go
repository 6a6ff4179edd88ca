// Package logging provides zerolog helpers, including sensitive-data
// redaction for everything the engine writes to disk. Adapter invocations
// carry provider API keys in their environment, so raw subprocess output must
// never reach the log file unfiltered.
package logging

import (
	"io"
	"regexp"
	"strings"
)

// RedactedValue replaces sensitive data in filtered output.
const RedactedValue = "[REDACTED]"

// sensitivePatterns matches credential formats the supported CLIs use.
var sensitivePatterns = []*regexp.Regexp{
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-api[a-zA-Z0-9_-]+`),

	// OpenAI API keys
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),

	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// key=value style assignments
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?[a-zA-Z0-9_-]{16,}["']?`),
	regexp.MustCompile(`(?i)(secret|password|credential|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
	regexp.MustCompile(`(?i)(token|auth)\s*[:=]\s*["']?[a-zA-Z0-9+/=]{32,}["']?`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),
}

// sensitiveFieldNames always have their values redacted, case-insensitively.
var sensitiveFieldNames = []string{
	"api_key", "apikey", "api-key",
	"password", "passwd", "secret",
	"credential", "credentials",
	"token", "authorization", "bearer",
	"anthropic_api_key", "openai_api_key", "gemini_api_key", "github_token",
}

// FilterSensitiveValue replaces credential-shaped substrings with the
// redaction marker.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName reports whether a field name indicates a credential.
func IsSensitiveFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, sensitive := range sensitiveFieldNames {
		if lower == sensitive || strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// SafeValue redacts the whole value for credential field names and filters
// credential-shaped substrings otherwise.
//
//	log.Info().Str("output", logging.SafeValue("output", raw)).Msg("adapter finished")
func SafeValue(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer so that credential-shaped content never
// reaches the underlying writer. Used around the rotating log file.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w with redaction.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. The original length is returned so callers do
// not observe a short write when redaction shrinks the payload.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
