package httpclient

import "strings"

// MergeCookies merges an existing cookie string in the form
// "name1=value1; name2=value2" with raw Set-Cookie header values. The value
// before the first ';' of each header is taken, split on the first '=', and
// overwrites the entry for that name. First-seen name order is preserved so
// merging the same headers twice yields an identical string.
//
// No cookie attribute (Domain, Path, Expires, HttpOnly) is tracked. This is a
// known simplification carried over from the login flow this serves: the
// accumulated jar is only ever replayed against the vendor domain.
func MergeCookies(existing string, setCookies []string) string {
	values := make(map[string]string)
	var order []string

	record := func(pair string) {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = value
	}

	for _, pair := range strings.Split(existing, "; ") {
		if pair != "" {
			record(pair)
		}
	}

	for _, header := range setCookies {
		pair := header
		if idx := strings.Index(header, ";"); idx >= 0 {
			pair = header[:idx]
		}
		record(strings.TrimSpace(pair))
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, name+"="+values[name])
	}
	return strings.Join(parts, "; ")
}

// CookieValue extracts a named cookie's value from a cookie string.
func CookieValue(cookies, name string) (string, bool) {
	for _, pair := range strings.Split(cookies, "; ") {
		k, v, found := strings.Cut(pair, "=")
		if found && k == name {
			return v, true
		}
	}
	return "", false
}
