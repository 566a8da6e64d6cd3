package transport

import (
	"os"
	"regexp"
)

// EnvFilter decides which ambient environment variables are forwarded to a
// spawned MCP server subprocess. Entries in Deny are matched as exact names
// first, then as regular expressions; anything in Allow always overrides a
// Deny match, matching "(explicit env always overrides)".
type EnvFilter struct {
	Deny  []string
	Allow map[string]string

	denyExact   map[string]struct{}
	denyPattern []*regexp.Regexp
}

// compiled lazily builds the exact-match set and regex list from Deny.
func (f *EnvFilter) compiled() {
	if f.denyExact != nil {
		return
	}
	f.denyExact = make(map[string]struct{}, len(f.Deny))
	f.denyPattern = nil
	for _, d := range f.Deny {
		if re, err := regexp.Compile(d); err == nil && isPatternLike(d) {
			f.denyPattern = append(f.denyPattern, re)
			continue
		}
		f.denyExact[d] = struct{}{}
	}
}

// isPatternLike is a conservative heuristic: a deny entry is only treated as
// a regex if it contains a character regexp.Compile would interpret
// specially, so a plain variable name like "AWS_SECRET_ACCESS_KEY" is never
// accidentally misread as a pattern.
func isPatternLike(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '.', '^', '$', '[', ']', '(', ')', '|', '+', '?', '\\':
			return true
		}
	}
	return false
}

// denied reports whether name matches a Deny rule and is not explicitly
// overridden by Allow.
func (f *EnvFilter) denied(name string) bool {
	f.compiled()
	if _, ok := f.Allow[name]; ok {
		return false
	}
	if _, ok := f.denyExact[name]; ok {
		return true
	}
	for _, re := range f.denyPattern {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Build produces the full environment slice for a subprocess: the current
// process environment minus denied variables, plus Allow overrides applied
// last so they always take effect.
func (f *EnvFilter) Build() []string {
	base := os.Environ()
	out := make([]string, 0, len(base)+len(f.Allow))
	for _, kv := range base {
		name, _, ok := splitEnv(kv)
		if !ok || f.denied(name) {
			continue
		}
		if _, overridden := f.Allow[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	for name, value := range f.Allow {
		out = append(out, name+"="+value)
	}
	return out
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
