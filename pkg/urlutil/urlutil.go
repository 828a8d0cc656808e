package urlutil

import (
	"net/url"
	"strings"
)

// MergeQuery returns a copy of u whose query carries both the existing
// parameters and params. Values from params are appended, never replacing
// what the URL already had, so repeated keys survive.
func MergeQuery(u url.URL, params url.Values) url.URL {
	if len(params) == 0 {
		return u
	}
	merged := u.Query()
	for key, values := range params {
		for _, v := range values {
			merged.Add(key, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u
}

// HostMatchesDomain reports whether host is domain or one of its subdomains.
// Comparison ignores ASCII case and a leading "www.".
func HostMatchesDomain(host, domain string) bool {
	host = strings.TrimSuffix(lowerASCII(host), ".")
	domain = strings.TrimPrefix(lowerASCII(domain), "www.")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
