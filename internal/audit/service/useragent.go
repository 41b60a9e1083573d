package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// describeAgent reduces a raw User-Agent header to browser and OS labels.
func describeAgent(raw string) (browser, os string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name != "" && version != "" {
		browser = name + " " + version
	} else {
		browser = name
	}
	return browser, ua.OS()
}
