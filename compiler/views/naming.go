package views

import (
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"
)

// initialisms stay fully uppercased in titles.
var initialisms = regexp.MustCompile(
	`(?i)\b(CPU|DB|DNS|DNT|DOM|GC|GPU|HTTP|ID|IO|IP|ISP|JWE|LB|OS|SDK|SERP|SSL|TLS|UI|URI|URL|UTM|UUID)\b`,
)

// SlugToTitle converts an identifier slug to a display title, with common
// initialisms uppercased: "uri_count" becomes "URI Count".
func SlugToTitle(slug string) string {
	title := inflect.Titleize(strings.ReplaceAll(slug, "_", " "))
	return initialisms.ReplaceAllStringFunc(title, strings.ToUpper)
}
