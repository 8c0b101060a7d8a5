// Package safelink recognises Microsoft SafeLinks wrapped URLs and recovers
// the original target. It performs string rewriting only and never
// dereferences a URL.
package safelink

import (
	"net/url"
	"strings"
)

// DefaultDomain is the SafeLinks host suffix used by commercial tenants.
// Regions appear as a subdomain (eur01, nam02, gbr01, ...).
const DefaultDomain = "safelinks.protection.outlook.com"

// TargetParam is the query parameter carrying the wrapped URL.
const TargetParam = "url"

// Link is the decoded view of a SafeLinks URL.
type Link struct {
	Host          string
	Region        string
	Domain        string
	EncodedTarget string
	Target        string
}

// Decoder recognises SafeLinks hosted under a set of domains.
type Decoder struct {
	domains []string
}

var defaultDecoder = NewDecoder()

// NewDecoder returns a Decoder for DefaultDomain plus any extra domains.
// Extra domains are matched the same way, as host suffixes.
func NewDecoder(extraDomains ...string) *Decoder {
	d := &Decoder{domains: []string{DefaultDomain}}
	for _, domain := range extraDomains {
		domain = normalizeDomain(domain)
		if domain == "" || d.hasDomain(domain) {
			continue
		}
		d.domains = append(d.domains, domain)
	}
	return d
}

// Domains returns the recognised domain suffixes.
func (d *Decoder) Domains() []string {
	out := make([]string, len(d.domains))
	copy(out, d.domains)
	return out
}

// Parse reports whether candidate is a SafeLink and returns its parts.
func (d *Decoder) Parse(candidate string) (*Link, bool) {
	u, err := url.Parse(strings.TrimSpace(candidate))
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}

	host := strings.ToLower(u.Hostname())
	region, domain, ok := d.matchHost(host)
	if !ok {
		return nil, false
	}

	encoded, ok := rawParam(u.RawQuery, TargetParam)
	if !ok {
		return nil, false
	}
	target, err := url.QueryUnescape(encoded)
	if err != nil || strings.TrimSpace(target) == "" {
		return nil, false
	}

	return &Link{
		Host:          host,
		Region:        region,
		Domain:        domain,
		EncodedTarget: encoded,
		Target:        target,
	}, true
}

// Decode returns the original URL wrapped by candidate. The boolean is false
// when candidate is not a SafeLink.
func (d *Decoder) Decode(candidate string) (string, bool) {
	link, ok := d.Parse(candidate)
	if !ok {
		return "", false
	}
	return link.Target, true
}

// IsSafeLink reports whether candidate can be decoded.
func (d *Decoder) IsSafeLink(candidate string) bool {
	_, ok := d.Parse(candidate)
	return ok
}

// Parse uses the default decoder.
func Parse(candidate string) (*Link, bool) {
	return defaultDecoder.Parse(candidate)
}

// Decode uses the default decoder.
func Decode(candidate string) (string, bool) {
	return defaultDecoder.Decode(candidate)
}

// IsSafeLink uses the default decoder.
func IsSafeLink(candidate string) bool {
	return defaultDecoder.IsSafeLink(candidate)
}

func (d *Decoder) matchHost(host string) (region, domain string, ok bool) {
	for _, known := range d.domains {
		if host == known {
			return "", known, true
		}
		if prefix, found := strings.CutSuffix(host, "."+known); found && prefix != "" {
			return prefix, known, true
		}
	}
	return "", "", false
}

func (d *Decoder) hasDomain(domain string) bool {
	for _, existing := range d.domains {
		if existing == domain {
			return true
		}
	}
	return false
}

// rawParam returns the first non-empty, still escaped value of key.
// url.Values skips pairs holding a raw semicolon.
func rawParam(rawQuery, key string) (string, bool) {
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		name, value, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(name); err != nil || unescaped != key {
			continue
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.Trim(domain, ".")
}
