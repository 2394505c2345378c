package monitor

import (
	"fmt"
	"net/url"
	"strings"
)

// Default tracking-parameter policy. The exact key set is deployment policy,
// not a fixed list; these defaults cover the common campaign and click-id
// parameters seen across ad and email platforms.
var (
	DefaultTrackingPrefixes = []string{"utm_"}
	DefaultTrackingKeys = []string{
		"gclid", "dclid", "fbclid", "yclid", "msclkid",
		"mc_cid", "mc_eid", "igshid", "ref",
	}
)

// IdentityPolicy canonicalizes (source, url) pairs into stable content IDs.
// Two mentions with the same source and URL modulo fragment, tracking query
// parameters, and host letter-case always collapse to one identifier.
type IdentityPolicy struct {
	prefixes []string
	keys     map[string]struct{}
	hasher   Hasher
}

// NewIdentityPolicy builds a policy from the configured tracking prefixes and
// exact keys. Matching is case-insensitive on the parameter key.
func NewIdentityPolicy(prefixes, keys []string, hasher Hasher) *IdentityPolicy {
	p := &IdentityPolicy{
		prefixes: make([]string, 0, len(prefixes)),
		keys:     make(map[string]struct{}, len(keys)),
		hasher:   hasher,
	}
	for _, pre := range prefixes {
		p.prefixes = append(p.prefixes, strings.ToLower(pre))
	}
	for _, k := range keys {
		p.keys[strings.ToLower(k)] = struct{}{}
	}
	return p
}

// Normalize canonicalizes a URL: the fragment is removed, tracking query
// parameters are stripped, and the host is lower-cased. Scheme, path, and the
// surviving query parameters are left untouched, in their original order and
// encoding.
func (p *IdentityPolicy) Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = p.stripTracking(u.RawQuery)

	return u.String(), nil
}

// ComputeID returns the hex SHA-256 digest of "{source}|{normalized url}".
// This is the sole deduplication key; title and published time are excluded.
func (p *IdentityPolicy) ComputeID(source, rawURL string) (string, error) {
	normalized, err := p.Normalize(rawURL)
	if err != nil {
		return "", err
	}
	digest, err := p.hasher.Hash([]byte(source + "|" + normalized))
	if err != nil {
		return "", fmt.Errorf("hash identity: %w", err)
	}
	return digest, nil
}

// stripTracking filters the raw query string pair by pair, keeping survivors
// in their original order. url.Values cannot be used here: it both sorts and
// re-encodes parameters.
func (p *IdentityPolicy) stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if p.isTracking(strings.ToLower(key)) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func (p *IdentityPolicy) isTracking(key string) bool {
	if _, ok := p.keys[key]; ok {
		return true
	}
	for _, pre := range p.prefixes {
		if strings.HasPrefix(key, pre) {
			return true
		}
	}
	return false
}
