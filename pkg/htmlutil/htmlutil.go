// Package htmlutil holds the stateless querying helpers every scraper stage goes through.
// A missing element is reported as `ok == false`, callers decide whether that is fatal.
package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims a text run and collapses the whitespace the page layout leaves inside it.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// FirstText returns the cleaned text of the first element matching selector under sel.
func FirstText(sel *goquery.Selection, selector string) (string, bool) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return CleanText(GetText(found.Get(0))), true
}

// FirstAttr returns an attribute of the first element matching selector under sel. It is not
// ok when either the element or the attribute is absent.
func FirstAttr(sel *goquery.Selection, selector, attr string) (string, bool) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return found.Attr(attr)
}

// AllText returns the cleaned text of every element matching selector, in document order.
// Elements with no text are skipped.
func AllText(sel *goquery.Selection, selector string) []string {
	var out []string
	sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := CleanText(GetText(s.Get(0)))
		if text == "" {
			return
		}
		out = append(out, text)
	})
	return out
}
