package cache

import (
	"net/url"
	"strings"

	"github.com/rodekruis/qfa/internal/model"
)

// Key identifies one cached taxonomy.
type Key struct {
	System string `json:"system"`
	Origin string `json:"origin"`
}

func (k Key) String() string {
	return k.System + ":" + k.Origin
}

// KeyFor derives the cache key for an origin. Identifier-style origins (Kobo
// asset uids) are used verbatim. URL-style origins (EspoCRM instances) are
// reduced to their lowercased host so scheme, trailing slash and path
// variants of one instance share an entry.
func KeyFor(system, originID string) Key {
	originID = strings.TrimSpace(originID)
	if system == model.SystemEspoCRM {
		originID = hostOf(originID)
	}
	return Key{System: system, Origin: originID}
}

func hostOf(raw string) string {
	s := raw
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	return strings.ToLower(u.Host)
}
