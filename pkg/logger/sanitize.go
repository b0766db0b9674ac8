package logger

import (
	"log/slog"
	"net/netip"
	"net/url"
	"strings"
)

// SanitizedEmail hides the mailbox but keeps the tenant domain, e.g. "m***@empresa.com.br"
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	return local[:1] + "***@" + domain
}

// MaskIP drops the host part of an address: the last octet for IPv4 and
// everything past the /48 prefix for IPv6.
func MaskIP(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "[invalid-ip]"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "[invalid-ip]"
	}

	return prefix.Addr().String()
}

// ClientIPAttr logs ip under key, masked when mask is set
func ClientIPAttr(key, ip string, mask bool) slog.Attr {
	if mask && ip != "" {
		return slog.String(key, MaskIP(ip))
	}
	return slog.String(key, ip)
}

// Query parameters that carry credentials, codes or identities
var sensitiveParams = map[string]bool{
	"email":             true,
	"code":              true,
	"sid":               true,
	"secret":            true,
	"verificationtoken": true,
	"newpassword":       true,
}

// SensitiveQuery reports whether a raw query string names a credential parameter.
// Unparseable queries are treated as sensitive.
func SensitiveQuery(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}

	for key := range values {
		k := strings.ToLower(key)
		if sensitiveParams[k] || strings.Contains(k, "token") || strings.Contains(k, "password") {
			return true
		}
	}
	return false
}
