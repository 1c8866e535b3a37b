package enums

import "strings"

// EngagementKind is a reaction received by an account's content: a like, a
// dislike or a comment. The membership counters these feed drive the
// verification rule.
type EngagementKind string

const (
	EngagementLike    EngagementKind = "like"
	EngagementDislike EngagementKind = "dislike"
	EngagementComment EngagementKind = "comment"
)

func (k EngagementKind) Valid() bool {
	switch k {
	case EngagementLike, EngagementDislike, EngagementComment:
		return true
	default:
		return false
	}
}

func ParseEngagementKind(input string) (EngagementKind, bool) {
	k := EngagementKind(strings.ToLower(strings.TrimSpace(input)))
	if !k.Valid() {
		return "", false
	}
	return k, true
}
