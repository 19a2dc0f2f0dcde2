package domain

import (
	"strings"
	"time"
)

// VendorUnknown is assigned when no exact email-domain match exists.
const VendorUnknown = "unknown"

// DefaultIdentityTTL is how long a resolved identity stays fresh.
const DefaultIdentityTTL = 7 * 24 * time.Hour

// AgentIdentity is the resolved view of a support agent.
type AgentIdentity struct {
	RawID       string    `json:"raw_id"`
	Name        string    `json:"name"`
	WorkEmail   string    `json:"work_email"`
	PublicEmail string    `json:"public_email,omitempty"`
	Vendor      string    `json:"vendor"`
	Active      bool      `json:"active"`
	ResolvedAt  time.Time `json:"resolved_at"`
	// Fallback is set when the identity source could not be reached and the
	// identity was synthesized from the conversation email alone.
	Fallback bool `json:"fallback"`
}

// IsStale reports whether the identity is older than ttl at now.
func (a AgentIdentity) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(a.ResolvedAt) >= ttl
}

// DisplayName returns the best human-readable label for the agent.
func (a AgentIdentity) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.WorkEmail != "" {
		return a.WorkEmail
	}
	return a.RawID
}

// AdminProfile is what the identity source returns for an admin id.
type AdminProfile struct {
	ID     string
	Name   string
	Email  string
	Active bool
	// VendorHint is carried through for reporting only; the vendor tag is
	// always derived from the email domain.
	VendorHint string
}

// VendorClassifier maps email domains to vendor tags by exact match.
type VendorClassifier struct {
	domains map[string]string
}

// DefaultVendorDomains is the built-in domain table.
func DefaultVendorDomains() map[string]string {
	return map[string]string{
		"hirehoratio.co":  "horatio",
		"boldrimpact.com": "boldr",
		"boldr.io":        "boldr",
	}
}

// NewVendorClassifier builds a classifier from a domain → vendor table.
// Keys are normalized to lower case.
func NewVendorClassifier(domains map[string]string) *VendorClassifier {
	normalized := make(map[string]string, len(domains))
	for d, vendor := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		vendor = strings.ToLower(strings.TrimSpace(vendor))
		if d == "" || vendor == "" {
			continue
		}
		normalized[d] = vendor
	}
	return &VendorClassifier{domains: normalized}
}

// Classify returns the vendor tag for email, or VendorUnknown.
func (c *VendorClassifier) Classify(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	_, emailDomain, found := strings.Cut(email, "@")
	if !found || emailDomain == "" {
		return VendorUnknown
	}
	if vendor, ok := c.domains[emailDomain]; ok {
		return vendor
	}
	return VendorUnknown
}

// IsKnownVendor reports whether vendor is a tag in the domain table.
func (c *VendorClassifier) IsKnownVendor(vendor string) bool {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	for _, v := range c.domains {
		if v == vendor {
			return true
		}
	}
	return false
}
