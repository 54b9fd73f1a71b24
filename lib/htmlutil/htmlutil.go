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

// CleanText trims text and collapses inner whitespace to a single space.
func CleanText(text string) string {
	text = removeNonPrintable(text)
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}

// SelectionText returns the cleaned text of the first node in sel, ok is false when sel is empty.
func SelectionText(sel *goquery.Selection) (text string, ok bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return CleanText(GetText(sel.Nodes[0])), true
}
