package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter name fragments redacted from logs.
// Matching is case-insensitive.
var sensitiveParams = []string{
	"key",
	"token",
	"password",
	"auth",
	"secret",
	"credential",
}

// sanitizeURL strips credentials from u before it is logged: userinfo
// passwords and any query parameter whose name looks sensitive.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		if _, hasPassword := safe.User.Password(); hasPassword {
			safe.User = url.UserPassword(safe.User.Username(), "[REDACTED]")
		}
	}

	if safe.RawQuery != "" {
		q := safe.Query()
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, "[REDACTED]")
			}
		}
		safe.RawQuery = q.Encode()
	}

	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
