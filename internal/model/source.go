package model

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not a URL, or not inspected
	TierPrimary   AuthorityTier = 1 // Government, courts, academic, official statements
	TierSecondary AuthorityTier = 2 // Wire services, public broadcasters, major outlets
	TierTertiary  AuthorityTier = 3 // Blogs, social posts, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// SourceInfo is the preview of one submitted source. It is display metadata:
// scoring always uses the raw source strings.
type SourceInfo struct {
	Source     string        `json:"source" firestore:"source"`
	IsURL      bool          `json:"is_url" firestore:"is_url"`
	Host       string        `json:"host,omitempty" firestore:"host,omitempty"`
	Domain     string        `json:"domain,omitempty" firestore:"domain,omitempty"` // Registrable domain (eTLD+1)
	Accessible bool          `json:"accessible" firestore:"accessible"`
	StatusCode int           `json:"status_code,omitempty" firestore:"status_code,omitempty"`
	Title      string        `json:"title,omitempty" firestore:"title,omitempty"`
	Authority  AuthorityTier `json:"authority" firestore:"authority"`
	Disallowed bool          `json:"disallowed,omitempty" firestore:"disallowed,omitempty"` // robots.txt said no
	Error      string        `json:"error,omitempty" firestore:"error,omitempty"`
}
