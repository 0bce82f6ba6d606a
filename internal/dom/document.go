// Package dom is the live document model the marking engine works against:
// an HTML tree with attribute and class helpers, a mutation observer queue
// and event listeners. A Document is not safe for concurrent use; its owner
// serialises access the way a browser's main thread does.
package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/linkmark-service/pkg/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page.
type Document struct {
	doc     *goquery.Document
	pageURL string
	base    *url.URL

	observers []*observer
	listeners []*listener
}

// Parse reads an HTML page served at pageURL.
func Parse(pageURL string, r io.Reader) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}
	doc.Url = base
	return &Document{doc: doc, pageURL: pageURL, base: base}, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(pageURL, src string) (*Document, error) {
	return Parse(pageURL, strings.NewReader(src))
}

// URL returns the exact page URL.
func (d *Document) URL() string { return d.pageURL }

// Hostname returns the page host without port.
func (d *Document) Hostname() string { return strings.ToLower(d.base.Hostname()) }

// HTML serialises the current tree.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// Head returns the <head> element.
func (d *Document) Head() *html.Node { return first(d.doc.Find("head")) }

// Body returns the <body> element.
func (d *Document) Body() *html.Node { return first(d.doc.Find("body")) }

// Query returns every attached element matching selector.
func (d *Document) Query(selector string) []*html.Node {
	return d.doc.Find(selector).Nodes
}

// ElementByID returns the element with the given id, or nil.
func (d *Document) ElementByID(id string) *html.Node {
	return first(d.doc.Find(`[id="` + id + `"]`))
}

func first(sel *goquery.Selection) *html.Node {
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// Contains reports whether n is still attached to the document.
func (d *Document) Contains(n *html.Node) bool {
	if n == nil {
		return false
	}
	root := first(d.doc.Selection)
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Anchors returns every a[href] in document order.
func (d *Document) Anchors() []*html.Node {
	return d.doc.Find("a[href]").Nodes
}

// AnchorsWithin returns n itself when it is an a[href], followed by every
// a[href] nested below it. Only the subtree rooted at n is visited.
func (d *Document) AnchorsWithin(n *html.Node) []*html.Node {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	var out []*html.Node
	if IsAnchor(n) {
		out = append(out, n)
	}
	return append(out, goquery.NewDocumentFromNode(n).Find("a[href]").Nodes...)
}

// Href returns the absolute URL an anchor points to, resolved against the
// page URL, or "" when it has none.
func (d *Document) Href(n *html.Node) string {
	raw, ok := Attr(n, "href")
	if !ok {
		return ""
	}
	abs, err := utils.ToAbsoluteURL(d.base, raw)
	if err != nil {
		return ""
	}
	return abs
}

// ClosestAnchor walks from n up to <body> and returns the first anchor
// with an href, or nil.
func (d *Document) ClosestAnchor(n *html.Node) *html.Node {
	body := d.Body()
	for p := n; p != nil && p != body; p = p.Parent {
		if IsAnchor(p) {
			return p
		}
	}
	return nil
}

// CreateElement builds a detached element.
func CreateElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// AppendChild attaches child under parent and queues a mutation record.
func (d *Document) AppendChild(parent, child *html.Node) {
	if parent == nil || child == nil {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
	d.queue(MutationRecord{Target: parent, Added: []*html.Node{child}})
}

// InsertHTML parses fragment in the context of parent, appends the result
// and returns the inserted top-level nodes.
func (d *Document) InsertHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("insert into nil parent")
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.queue(MutationRecord{Target: parent, Added: nodes})
	}
	return nodes, nil
}

// Remove detaches n and queues a mutation record.
func (d *Document) Remove(n *html.Node) {
	if n == nil || n.Parent == nil {
		return
	}
	parent := n.Parent
	parent.RemoveChild(n)
	d.queue(MutationRecord{Target: parent, Removed: []*html.Node{n}})
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	if n == nil {
		return
	}
	var removed []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	t := &html.Node{Type: html.TextNode, Data: text}
	n.AppendChild(t)
	d.queue(MutationRecord{Target: n, Added: []*html.Node{t}, Removed: removed})
}

// Text returns the text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return goquery.NewDocumentFromNode(n).Text()
}
