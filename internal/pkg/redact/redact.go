// redact маскирует чувствительные значения перед записью в лог.
package redact

import "strings"

// Email оставляет первые два символа локальной части и домен: "al***@x.com".
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***"
	}

	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает короткий отпечаток токена (последние 4 символа),
// достаточный для корреляции записей, но бесполезный для повторного использования.
func Token(s string) string {
	if len(s) < 16 {
		return "[REDACTED_TOKEN]"
	}

	return "[REDACTED_TOKEN…" + s[len(s)-4:] + "]"
}
