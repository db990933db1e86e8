package session

import (
	"strings"

	"github.com/mileusna/useragent"
)

// DeviceLabel derives a short human readable label such as "Firefox 128 on
// Linux" from a User-Agent header. It returns "" when nothing useful can be
// parsed.
func DeviceLabel(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return ""
	}

	ua := useragent.Parse(userAgentString)

	browser := ua.Name
	if browser != "" && ua.Version != "" {
		browser += " " + majorVersion(ua.Version)
	}

	switch {
	case browser != "" && ua.OS != "":
		return browser + " on " + ua.OS
	case browser != "":
		return browser
	case ua.OS != "":
		return ua.OS
	}

	return ""
}

func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i > 0 {
		return version[:i]
	}
	return version
}
