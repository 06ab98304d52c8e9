package external

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is an alternate representation declared by a page.
type Link struct {
	// Href is the link target.
	Href string
	// Type is the media type hint from the type attribute, or "".
	Type string
}

// IsAlternateLink reports whether n is a link element with a non-blank href
// and a rel attribute listing the "alternate" link type.
func IsAlternateLink(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !strings.EqualFold(n.Data, "link") {
		return false
	}
	var hasHref, alternate bool
	for _, a := range n.Attr {
		switch a.Key {
		case "href":
			hasHref = strings.TrimSpace(a.Val) != ""
		case "rel":
			alternate = slices.ContainsFunc(strings.Fields(a.Val), func(t string) bool {
				return strings.EqualFold(t, "alternate")
			})
		}
	}
	return hasHref && alternate
}

// AlternateLinks returns the alternate link elements of doc in document
// order.
func AlternateLinks(doc *html.Node) []*html.Node {
	if doc == nil {
		return nil
	}
	var out []*html.Node
	goquery.NewDocumentFromNode(doc).Find("link[href][rel]").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			if IsAlternateLink(n) {
				out = append(out, n)
			}
		}
	})
	return out
}

// AlternateLinkRefs returns the href of every alternate link of doc.
func AlternateLinkRefs(doc *html.Node) []string {
	var out []string
	for _, l := range Links(doc) {
		out = append(out, l.Href)
	}
	return out
}

// Links returns the alternate links of doc with their type hints. Hrefs are
// returned as written.
func Links(doc *html.Node) []Link {
	var out []Link
	for _, n := range AlternateLinks(doc) {
		sel := goquery.NewDocumentFromNode(n).Selection
		href, _ := sel.Attr("href")
		typ, _ := sel.Attr("type")
		out = append(out, Link{Href: strings.TrimSpace(href), Type: strings.TrimSpace(typ)})
	}
	return out
}

// ResolveRefs resolves each of refs against base. An empty base leaves the
// references unchanged.
func ResolveRefs(base string, refs []string) ([]string, error) {
	if base == "" {
		return append([]string(nil), refs...), nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid alternate link %q: %w", ref, err)
		}
		out = append(out, baseURL.ResolveReference(u).String())
	}
	return out, nil
}
