package feed

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Hydrate populates the structural parts of a feed from its body HTML:
// attached media, the album reference when one is present, and the forward
// block. Entities are already extracted at parse time; network-dependent
// enrichment (album resolution, complete-feed expansion) happens later.
func Hydrate(f *Feed) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.HTML))
	if err != nil {
		return
	}
	f.Media = mediaFrom(doc)
	f.Album = albumFrom(doc)
	if f.Forward == nil {
		f.Forward = forwardFrom(doc)
	}
}

// Truncated reports whether the body carries a collapsed-content affordance,
// meaning the full HTML must be fetched through the complete-feed endpoint.
func Truncated(body string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return false
	}
	found := false
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if cmd, _ := sel.Attr("data-cmd"); cmd == "qz_toggle" {
			found = true
			return false
		}
		if class, _ := sel.Attr("class"); strings.Contains(class, "qz_toggle") {
			found = true
			return false
		}
		return true
	})
	return found
}

func mediaFrom(doc *goquery.Document) []VisualMedia {
	var media []VisualMedia
	doc.Find("div.img-box img, div.f-single-content img.j-img").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" || strings.Contains(src, "/qzone/em/") {
			return
		}
		m := VisualMedia{ThumbURL: src}
		if raw, ok := sel.Attr("data-raw-src"); ok && raw != "" {
			m.RawURL = raw
		}
		m.Width = intAttr(sel, "data-width")
		m.Height = intAttr(sel, "data-height")
		media = append(media, m)
	})
	doc.Find("div.video-img, div.img-box[data-video-url]").Each(func(_ int, sel *goquery.Selection) {
		rawURL, _ := sel.Attr("data-video-url")
		if rawURL == "" {
			rawURL, _ = sel.Attr("url3")
		}
		if rawURL == "" {
			return
		}
		thumb, _ := sel.Find("img").First().Attr("src")
		media = append(media, VisualMedia{RawURL: rawURL, ThumbURL: thumb, IsVideo: true})
	})
	return media
}

// albumFrom extracts the album reference the enricher resolves to raw URLs.
func albumFrom(doc *goquery.Document) *AlbumRef {
	var ref *AlbumRef
	doc.Find("[data-topicid]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		topic, _ := sel.Attr("data-topicid")
		pick, _ := sel.Attr("data-pickey")
		if topic == "" {
			return true
		}
		ref = &AlbumRef{TopicID: topic, PickKey: pick}
		return false
	})
	return ref
}

// forwardFrom detects a shared-URL forward block. Forwarded inner feeds are
// delivered by the listing endpoint as separate raw entries, so only the
// link-share shape is reconstructed from HTML.
func forwardFrom(doc *goquery.Document) *Forward {
	sel := doc.Find("div.txt-box a.q_share, a[data-cmd=qz_share]").First()
	if sel.Length() == 0 {
		return nil
	}
	href, _ := sel.Attr("href")
	if href == "" {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	return &Forward{URL: href, Text: text}
}

func intAttr(sel *goquery.Selection, key string) int {
	value, ok := sel.Attr(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
