package useragent

import (
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
)

// DeviceInfo represents parsed device information.
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, ...
	OS         string // Windows, iOS, Android, ...
	Raw        string // original User-Agent string
}

// Parser classifies User-Agent strings for click analytics.
type Parser struct {
	parser *uaparser.Parser
}

// NewParser creates a parser backed by uap-go's bundled regex definitions.
func NewParser() *Parser {
	return &Parser{parser: uaparser.NewFromSaved()}
}

// Parse extracts device information from a raw User-Agent string.
func (p *Parser) Parse(ua string) DeviceInfo {
	info := DeviceInfo{DeviceType: "unknown", Raw: ua}
	if ua == "" {
		return info
	}

	client := p.parser.Parse(ua)
	info.Browser = client.UserAgent.Family
	info.OS = client.Os.Family
	info.DeviceType = classify(ua, client.Device.Family)
	return info
}

func classify(ua, deviceFamily string) string {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "bot"), strings.Contains(lower, "spider"),
		strings.Contains(lower, "crawler"), deviceFamily == "Spider":
		return "bot"
	case strings.Contains(lower, "tablet"), strings.Contains(lower, "ipad"):
		return "tablet"
	case strings.Contains(lower, "mobile"), strings.Contains(lower, "android"),
		strings.Contains(lower, "iphone"):
		return "mobile"
	default:
		return "desktop"
	}
}
