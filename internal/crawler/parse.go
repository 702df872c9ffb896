package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

// Page is a fetched and parsed document.
type Page struct {
	URL   string
	Title string
	Body  string
	Links []Link
}

// Link is one href found on a page, in document order. Exactly one of URL
// and Err is set.
type Link struct {
	Raw string
	URL *url.URL
	Err error
}

// schemes a resolved link may carry and still count as well formed. Only
// http and https are fetched.
var knownSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true,
	"file": true, "mailto": true, "jar": true,
}

// Text of these elements is not part of the readable body.
var skipText = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
}

// Text inside these elements flows with its neighbours; every other element
// boundary separates words.
var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "font": true, "i": true,
	"kbd": true, "mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true,
	"u": true, "var": true,
}

// ParseHTML extracts the title, the readable text and every href of an
// HTML document. Relative links resolve against the first <base href>, or
// against pageURL when there is none.
func ParseHTML(pageURL *url.URL, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	page := &Page{URL: pageURL.String()}
	var text strings.Builder
	var hrefs []string
	var base *url.URL
	titleSeen := false

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			if skipText[n.Data] {
				return
			}
			if n.Data == "title" && !titleSeen {
				titleSeen = true
				page.Title = normalizeSpace(nodeText(n))
			}
			if n.Data == "base" && base == nil {
				if href, ok := getAttr(n, "href"); ok {
					if u, err := pageURL.Parse(strings.TrimSpace(href)); err == nil {
						base = u
					}
				}
			}
			if href, ok := getAttr(n, "href"); ok {
				hrefs = append(hrefs, href)
			}
			if !inline[n.Data] {
				text.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && !inline[n.Data] {
			text.WriteByte(' ')
		}
	}
	walk(doc)

	if base == nil {
		base = pageURL
	}
	page.Body = normalizeSpace(text.String())
	page.Links = make([]Link, 0, len(hrefs))
	for _, href := range hrefs {
		u, err := resolveLink(base, href)
		if err != nil {
			page.Links = append(page.Links, Link{
				Raw: href,
				Err: &apperrors.MalformedLinkError{Page: page.URL, Href: href, Err: err},
			})
			continue
		}
		page.Links = append(page.Links, Link{Raw: href, URL: u})
	}
	return page, nil
}

// resolveLink makes href absolute and checks that the result is a URL the
// crawler can name: a known scheme and, for network schemes, a host.
func resolveLink(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	abs := base.ResolveReference(ref)
	scheme := strings.ToLower(abs.Scheme)
	if !knownSchemes[scheme] {
		return nil, &url.Error{Op: "resolve", URL: abs.String(), Err: errUnknownScheme}
	}
	if (scheme == "http" || scheme == "https" || scheme == "ftp") && abs.Host == "" {
		return nil, &url.Error{Op: "resolve", URL: abs.String(), Err: errMissingHost}
	}
	return abs, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
