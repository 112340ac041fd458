// Package toolcall detects and executes directives embedded in model output.
// The grammar is strict and deliberately small: a bracketed token of the form
// [TOOL: name | key: value | key: value]. Anything that does not parse falls
// back to a no-op; the raw syntax is always stripped from user-visible text.
package toolcall

import (
	"regexp"
	"strings"
)

var directiveRe = regexp.MustCompile(`\[TOOL:([^\]]*)\]`)

// Detection is the outcome of scanning one model response.
type Detection struct {
	HasTool     bool
	ToolName    string
	Params      map[string]string
	CleanedText string
}

// Detect scans responseText for embedded directives. Only the first match is
// reported (single-action-per-turn policy) but every directive token is
// removed from CleanedText regardless.
func Detect(responseText string) Detection {
	matches := directiveRe.FindAllStringSubmatch(responseText, -1)
	if len(matches) == 0 {
		return Detection{CleanedText: responseText}
	}
	// Stripping a directive can leave dangling edge whitespace; interior
	// spacing is preserved as-is.
	out := Detection{
		CleanedText: strings.TrimSpace(directiveRe.ReplaceAllString(responseText, "")),
	}

	name, params := parseDirective(matches[0][1])
	if name == "" {
		return out
	}
	out.HasTool = true
	out.ToolName = name
	out.Params = params
	return out
}

// parseDirective splits the directive body on | and each parameter on the
// first colon. Malformed pairs are dropped silently.
func parseDirective(body string) (string, map[string]string) {
	parts := strings.Split(body, "|")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", nil
	}

	var params map[string]string
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[key] = value
	}
	return name, params
}
