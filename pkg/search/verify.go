package search

import (
	"strings"

	"golang.org/x/net/html"
)

// countResults parses the result page and counts organic result blocks
// (elements carrying the b_algo class inside the results container).
func countResults(rawHTML string) (int, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return 0, err
	}

	container := findByID(doc, "b_results")
	if container == nil {
		// No results container at all; count across the whole document so
		// markup drift degrades gracefully instead of reporting zero
		container = doc
	}

	return countByClass(container, "b_algo"), nil
}

// hasNoResultsMarker reports whether the page shows the explicit
// no-results indicator.
func hasNoResultsMarker(rawHTML string) bool {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}
	return findByClass(doc, "b_noresults") != nil
}

// titleReflectsTerm checks the second verification signal: the search term
// appearing in the page title. Comparison is case-insensitive.
func titleReflectsTerm(title, term string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(term))
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func countByClass(n *html.Node, class string) int {
	count := 0
	if n.Type == html.ElementNode && hasClass(n, class) {
		count++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += countByClass(c, class)
	}
	return count
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
