package auth

import "strings"

// Allowlist holds the paths exempt from token verification. Entries come
// from deployment configuration: plain entries match exactly, entries ending
// in "/*" match the prefix before the wildcard.
type Allowlist struct {
	exact    map[string]bool
	prefixes []string
}

func NewAllowlist(paths []string) *Allowlist {
	al := &Allowlist{exact: make(map[string]bool, len(paths))}
	for _, p := range paths {
		if strings.HasSuffix(p, "/*") {
			al.prefixes = append(al.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		al.exact[p] = true
	}
	return al
}

// Contains reports whether path is exempt from authentication.
func (al *Allowlist) Contains(path string) bool {
	if al.exact[path] {
		return true
	}
	for _, prefix := range al.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
