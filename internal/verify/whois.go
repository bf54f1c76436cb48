package verify

import (
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// DomainInfo is an informational WHOIS snapshot recorded when a domain
// is registered. Lookups are best-effort; a failed lookup never blocks
// registration.
type DomainInfo struct {
	Registrar *string
	ExpiresAt *time.Time
}

func LookupDomainInfo(domain string) DomainInfo {
	var info DomainInfo

	raw, err := whois.Whois(domain)
	if err != nil {
		return info
	}

	result, err := whoisparser.Parse(raw)
	if err != nil {
		return info
	}

	if result.Registrar != nil && result.Registrar.Name != "" {
		name := result.Registrar.Name
		info.Registrar = &name
	}
	if result.Domain != nil && result.Domain.ExpirationDate != "" {
		if t, err := parseWhoisDate(result.Domain.ExpirationDate); err == nil {
			info.ExpiresAt = &t
		}
	}
	return info
}

func parseWhoisDate(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"02-Jan-2006",
		"2006.01.02 15:04:05",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
