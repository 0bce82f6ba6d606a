package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsAnchor reports whether n is an <a> element carrying an href.
func IsAnchor(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.A {
		return false
	}
	_, ok := Attr(n, "href")
	return ok
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets key=val on n. It reports whether the node changed, so that
// unchanged re-marks write nothing.
func SetAttr(n *html.Node, key, val string) bool {
	if n == nil {
		return false
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return false
			}
			n.Attr[i].Val = val
			return true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return true
}

// RemoveAttr deletes key from n and reports whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	before := len(n.Attr)
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
	return len(n.Attr) != before
}

func classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	return slices.Contains(classes(n), c)
}

// AddClass adds c to n and reports whether it was missing.
func AddClass(n *html.Node, c string) bool {
	if n == nil || HasClass(n, c) {
		return false
	}
	SetAttr(n, "class", strings.Join(append(classes(n), c), " "))
	return true
}

// RemoveClass removes c from n and reports whether it was present.
func RemoveClass(n *html.Node, c string) bool {
	cs := classes(n)
	if !slices.Contains(cs, c) {
		return false
	}
	cs = slices.DeleteFunc(cs, func(s string) bool { return s == c })
	if len(cs) == 0 {
		RemoveAttr(n, "class")
	} else {
		SetAttr(n, "class", strings.Join(cs, " "))
	}
	return true
}
