package session

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"qzsync/internal/store"
)

// parsePtuiCB splits a ptuiCB('a','b',...) login envelope into its fields.
func parsePtuiCB(body string) ([]string, error) {
	open := strings.Index(body, "(")
	close := strings.LastIndex(body, ")")
	if open < 0 || close < open {
		return nil, fmt.Errorf("malformed login envelope %q", truncate(body, 80))
	}
	inner := body[open+1 : close]

	var fields []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "'\"")
		fields = append(fields, part)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty login envelope")
	}
	return fields, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// collectCookies assembles the credential set from whatever the jar gathered
// across the login domains. Cookies are scoped to qq.com or its subdomains,
// so both hosts are consulted.
func collectCookies(jar *cookiejar.Jar) store.Cookie {
	var cookie store.Cookie
	for _, host := range []string{"https://qzone.qq.com", "https://user.qzone.qq.com", "https://qq.com"} {
		u, err := url.Parse(host)
		if err != nil {
			continue
		}
		for _, c := range jar.Cookies(u) {
			switch c.Name {
			case "p_skey":
				cookie.PSkey = c.Value
			case "pt4_token":
				cookie.Pt4Token = c.Value
			case "pt_guid_sig":
				cookie.PtGuidSig = c.Value
			case "ptcz":
				cookie.Ptcz = c.Value
			}
		}
	}
	return cookie
}
