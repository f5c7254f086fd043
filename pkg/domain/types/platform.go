package types

import "fmt"

// Platform identifies a third-party workspace provider
type Platform string

const (
	PlatformSlack  Platform = "slack"
	PlatformAsana  Platform = "asana"
	PlatformGoogle Platform = "google"
	PlatformJira   Platform = "jira"
	PlatformMiro   Platform = "miro"
	PlatformZoho   Platform = "zoho"
)

// DefaultPlatform is used when an inbound request omits the platform
const DefaultPlatform = PlatformSlack

// AllPlatforms returns all supported platforms
func AllPlatforms() []Platform {
	return []Platform{
		PlatformSlack,
		PlatformAsana,
		PlatformGoogle,
		PlatformJira,
		PlatformMiro,
		PlatformZoho,
	}
}

// IsValid checks if the platform is supported
func (p Platform) IsValid() bool {
	switch p {
	case PlatformSlack, PlatformAsana, PlatformGoogle, PlatformJira, PlatformMiro, PlatformZoho:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// ParsePlatform parses a string into a Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid platform: %s", s)
	}
	return p, nil
}

// PlatformOrDefault returns DefaultPlatform when p is empty
func PlatformOrDefault(p Platform) Platform {
	if p == "" {
		return DefaultPlatform
	}
	return p
}
