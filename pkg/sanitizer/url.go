package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeAssetURL canonicalizes an image or avatar URL served to clients:
// https only, lowercase host, no fragment, no trailing slash. Anything that is
// not an http(s) URL yields "".
func NormalizeAssetURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
