package feed

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// EntitiesFromHTML walks a feed body and produces the ordered entity
// sequence the splitter stringifies. Text nodes become text entities,
// anchors carrying a uin parameter become at-mentions, and emoji images
// become emoji tags keyed by their file stem. Unrecognized markup degrades
// to its text content.
func EntitiesFromHTML(body string) []Entity {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return []Entity{{Kind: EntityText, Text: body}}
	}

	var entities []Entity
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := n.Data; text != "" {
				entities = appendText(entities, text)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "a":
				if uin, label, ok := atMention(n); ok {
					entities = append(entities, Entity{Kind: EntityAt, Uin: uin, Text: label})
					return
				}
			case "img":
				if id, ok := emojiID(n); ok {
					entities = append(entities, Entity{Kind: EntityEmoji, ID: id})
					return
				}
			case "script", "style":
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return entities
}

// PlainText flattens entities to text, substituting mentions with their
// label and dropping unresolved emoji tags.
func PlainText(entities []Entity) string {
	var b strings.Builder
	for _, e := range entities {
		switch e.Kind {
		case EntityText, EntityAt:
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

func appendText(entities []Entity, text string) []Entity {
	if n := len(entities); n > 0 && entities[n-1].Kind == EntityText {
		entities[n-1].Text += text
		return entities
	}
	return append(entities, Entity{Kind: EntityText, Text: text})
}

func atMention(n *html.Node) (int64, string, bool) {
	href := attr(n, "href")
	idx := strings.Index(href, "uin=")
	if idx < 0 {
		return 0, "", false
	}
	value := href[idx+len("uin="):]
	if amp := strings.IndexByte(value, '&'); amp >= 0 {
		value = value[:amp]
	}
	uin, err := strconv.ParseInt(value, 10, 64)
	if err != nil || uin <= 0 {
		return 0, "", false
	}
	label := textContent(n)
	if label == "" {
		label = "@" + value
	}
	return uin, label, true
}

func emojiID(n *html.Node) (string, bool) {
	src := attr(n, "src")
	if !strings.Contains(src, "/qzone/em/") {
		return "", false
	}
	base := src[strings.LastIndexByte(src, '/')+1:]
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}
	if base == "" {
		return "", false
	}
	return base, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
