package observability

import "unicode"

// sanitizeString strips control characters and caps length so attacker-chosen
// values (paths, headers, identifiers) cannot forge or bloat log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}

	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\t' {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return string(out)
}

// SanitizeRoute normalises a route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod normalises an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeActor caps staff identifiers. Customer names, phones and delivery
// addresses must never pass through here; they stay out of logs entirely.
func SanitizeActor(uid string) string {
	if uid == "" {
		return ""
	}
	return sanitizeString(uid, 64)
}
