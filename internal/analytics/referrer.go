package analytics

import (
	"regexp"
	"strings"
)

// AggLevel selects the referrer aggregation granularity. It is service
// configuration, not a per-call parameter.
type AggLevel string

const (
	AggDomain      AggLevel = "domain"
	AggDomainPath1 AggLevel = "domain_path1"
	AggDomainPath2 AggLevel = "domain_path2"
)

// ParseAggLevel maps a configuration string to an aggregation level,
// falling back to domain-only.
func ParseAggLevel(s string) AggLevel {
	switch AggLevel(strings.ToLower(s)) {
	case AggDomainPath1:
		return AggDomainPath1
	case AggDomainPath2:
		return AggDomainPath2
	default:
		return AggDomain
	}
}

var (
	protocolRe = regexp.MustCompile(`^[a-zA-Z]+://`)
	numericRe  = regexp.MustCompile(`^[0-9]+$`)
	// hex/UUID-like identifiers: 8+ chars of hex digits and dashes.
	hexIDRe = regexp.MustCompile(`^[0-9a-fA-F-]{8,}$`)
)

// NormalizeReferrer canonicalizes a referring URL into a coarse bucket:
// protocol and query string are stripped, the remainder is split into host
// and up to two path segments, and identifier-like segments collapse to the
// literal token ":id" so per-entity URLs land in one bucket. An empty host
// buckets under "direct". Normalization is idempotent: a bucket string
// normalizes to itself.
func NormalizeReferrer(referer string, level AggLevel) string {
	s := protocolRe.ReplaceAllString(referer, "")
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, "/")
	host := parts[0]
	if host == "" {
		host = "direct"
	}

	var seg1, seg2 string
	if len(parts) > 1 {
		seg1 = normalizeSegment(parts[1])
	}
	if len(parts) > 2 {
		seg2 = normalizeSegment(parts[2])
	}

	bucket := host
	if level == AggDomainPath1 || level == AggDomainPath2 {
		if seg1 != "" {
			bucket += "/" + seg1
		}
	}
	if level == AggDomainPath2 {
		if seg2 != "" {
			bucket += "/" + seg2
		}
	}
	return bucket
}

func normalizeSegment(seg string) string {
	if numericRe.MatchString(seg) || hexIDRe.MatchString(seg) {
		return ":id"
	}
	return seg
}
