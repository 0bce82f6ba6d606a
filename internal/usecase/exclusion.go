package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidDomain = errors.New("invalid domain format")

var domainPattern = regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*\.)+[a-z]{2,}$`)

// NormalizeDomain lower-cases and trims an operator-supplied domain.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ValidateDomain rejects anything that is not a dotted host name such as
// "example.com" or "news.example.co.uk".
func ValidateDomain(domain string) error {
	if !domainPattern.MatchString(NormalizeDomain(domain)) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	return nil
}

// IsExcluded reports whether hostname equals an entry of sites or is a
// subdomain of one.
func IsExcluded(hostname string, sites []string) bool {
	host := strings.ToLower(hostname)
	if host == "" {
		return false
	}
	for _, site := range sites {
		site = NormalizeDomain(site)
		if site == "" {
			continue
		}
		if host == site || strings.HasSuffix(host, "."+site) {
			return true
		}
	}
	return false
}
