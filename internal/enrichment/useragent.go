package enrichment

import (
	"fmt"

	"github.com/mssola/user_agent"
)

type UAInfo struct {
	Browser    string
	Version    string
	OS         string
	DeviceType string
}

func (i *UAInfo) String() string {
	return fmt.Sprintf("%s %s on %s (%s)", i.Browser, i.Version, i.OS, i.DeviceType)
}

// ParseUserAgent describes the client of a login for the audit log.
func ParseUserAgent(uaString string) *UAInfo {
	if uaString == "" {
		return &UAInfo{Browser: "unknown", OS: "unknown", DeviceType: "unknown"}
	}

	ua := user_agent.New(uaString)
	browser, version := ua.Browser()

	deviceType := "desktop"
	switch {
	case ua.Bot():
		deviceType = "bot"
	case ua.Mobile():
		deviceType = "mobile"
	}

	os := ua.OS()
	if os == "" {
		os = "unknown"
	}

	return &UAInfo{
		Browser:    browser,
		Version:    version,
		OS:         os,
		DeviceType: deviceType,
	}
}
