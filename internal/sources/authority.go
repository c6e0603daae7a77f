package sources

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/safeprotest/factcheck/internal/model"
)

// AuthorityClassifier sorts hosts into authority tiers by domain suffix
type AuthorityClassifier struct {
	primary   []string
	secondary []string
}

// NewAuthorityClassifier builds a classifier from domain suffix lists.
// Entries match the host itself or any subdomain of it.
func NewAuthorityClassifier(primary, secondary []string) *AuthorityClassifier {
	return &AuthorityClassifier{
		primary:   normalizeDomains(primary),
		secondary: normalizeDomains(secondary),
	}
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Classify returns the tier for host. Empty hosts are TierUnknown.
func (a *AuthorityClassifier) Classify(host string) model.AuthorityTier {
	host = strings.TrimSuffix(strings.ToLower(stripPort(host)), ".")
	if host == "" {
		return model.TierUnknown
	}

	if matchesAny(host, a.primary) {
		return model.TierPrimary
	}
	if matchesAny(host, a.secondary) {
		return model.TierSecondary
	}

	// Academic and government suffixes are primary even when unlisted
	for _, suffix := range []string{".gov", ".mil", ".edu", ".ac.uk", ".gov.uk"} {
		if strings.HasSuffix(host, suffix) {
			return model.TierPrimary
		}
	}

	return model.TierTertiary
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// RegistrableDomain returns the eTLD+1 of host (news.bbc.co.uk -> bbc.co.uk).
// Hosts without a registrable part, such as localhost or an IP, come back as is.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(stripPort(host)), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
		return host
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 && strings.Count(host, ":") == 1 {
		return host[:idx]
	}
	return host
}
