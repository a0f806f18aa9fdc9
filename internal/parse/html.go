package parse

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/askthws/harvester/internal/dates"
	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/language"
	"github.com/askthws/harvester/internal/textutil"
)

// Tags that never contribute content and are removed from the extracted
// fragment wholesale.
const strippedTags = "script, style, noscript, template, nav, header, footer, " +
	"form, button, input, select, textarea, iframe, object, embed, video, audio, svg"

// Fallback containers tried in order when readability yields nothing.
var semanticContainers = []string{"main", "[role=main]", "#content", ".content", "article"}

// Meta tags copied into the record's page metadata, keyed by the stored name.
var metaTags = map[string][2]string{
	"description":    {"name", "description"},
	"keywords":       {"name", "keywords"},
	"og_title":       {"property", "og:title"},
	"og_description": {"property", "og:description"},
	"og_type":        {"property", "og:type"},
	"published_at":   {"property", "article:published_time"},
	"modified_at":    {"property", "article:modified_time"},
}

// HTMLParser extracts the main content of a page as cleaned,
// structure-preserving markup.
type HTMLParser struct {
	softErrors []string
	clock      harvest.Clock
}

// NewHTMLParser builds an HTMLParser. softErrors is the list of lowercase
// phrases whose presence marks an HTTP-200 response as an error page.
func NewHTMLParser(softErrors []string, clock harvest.Clock) *HTMLParser {
	lowered := make([]string, 0, len(softErrors))
	for _, s := range softErrors {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			lowered = append(lowered, s)
		}
	}
	return &HTMLParser{softErrors: lowered, clock: clock}
}

// Parse implements harvest.Parser. A nil record with nil error means the page
// was empty or a soft error page; embedded .pdf/.ics links are returned even
// then so file discovery does not depend on page quality.
func (p *HTMLParser) Parse(resp harvest.FetchedResponse) (harvest.ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return harvest.ParseResult{}, fmt.Errorf("parse html: %w", err)
	}

	pageURL, err := url.Parse(resp.URL())
	if err != nil {
		return harvest.ParseResult{}, fmt.Errorf("parse response url: %w", err)
	}

	links := collectFileLinks(doc, pageURL)

	fragment, extractedTitle := p.extractMain(resp.Body, pageURL, doc)
	body, text := cleanFragment(fragment)
	if text == "" || p.isSoftError(text) {
		return harvest.ParseResult{Links: links}, nil
	}

	fullText := textutil.Clean(doc.Text())

	record := &harvest.PageRecord{
		URL:         resp.URL(),
		Kind:        harvest.KindHTML,
		Title:       p.resolveTitle(extractedTitle, doc),
		Body:        body,
		FetchedAt:   p.clock.Now(),
		ContentDate: dates.ExtractUpdated(fullText),
		HTTPStatus:  resp.StatusCode,
		Language:    language.Resolve(resp.URL(), text),
		Metadata:    extractMetadata(doc),
	}
	return harvest.ParseResult{Record: record, Links: links}, nil
}

// extractMain runs the strategy chain: readability, then the first matching
// semantic container, then <body>. It returns raw fragment HTML plus the
// title readability recovered, if any.
func (p *HTMLParser) extractMain(body []byte, pageURL *url.URL, doc *goquery.Document) (string, string) {
	if article, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		if strings.TrimSpace(article.TextContent) != "" {
			return article.Content, article.Title
		}
	}
	for _, selector := range semanticContainers {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if fragment, err := goquery.OuterHtml(sel); err == nil && strings.TrimSpace(sel.Text()) != "" {
			return fragment, ""
		}
	}
	if fragment, err := doc.Find("body").Html(); err == nil {
		return fragment, ""
	}
	return "", ""
}

// cleanFragment strips non-content tags, comments, and presentation
// attributes, and de-obfuscates emails in text nodes. It returns the cleaned
// markup and its rendered plain text.
func cleanFragment(fragment string) (string, string) {
	if strings.TrimSpace(fragment) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", ""
	}
	body := doc.Find("body")
	body.Find(strippedTags).Remove()
	for _, node := range body.Nodes {
		scrubNode(node)
	}
	markup, err := body.Html()
	if err != nil {
		return "", ""
	}
	markup = strings.TrimSpace(markup)
	return markup, textutil.Clean(body.Text())
}

// scrubNode walks the node tree removing comments and presentation
// attributes, and rewriting obfuscated emails in text nodes.
func scrubNode(node *html.Node) {
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		switch child.Type {
		case html.CommentNode:
			node.RemoveChild(child)
		case html.TextNode:
			child.Data = textutil.DeobfuscateEmails(child.Data)
		case html.ElementNode:
			child.Attr = filterAttrs(child.Attr)
			scrubNode(child)
		}
		child = next
	}
}

func filterAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if key == "class" || key == "id" || key == "style" {
			continue
		}
		if strings.HasPrefix(key, "on") || strings.HasPrefix(key, "data-") {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func (p *HTMLParser) isSoftError(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range p.softErrors {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func (p *HTMLParser) resolveTitle(extracted string, doc *goquery.Document) string {
	if t := strings.TrimSpace(extracted); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return "Untitled Page"
}

// extractMetadata reads the configured meta tags from the full page, not the
// cleaned fragment, since readability often discards <head>.
func extractMetadata(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content := strings.TrimSpace(sel.AttrOr("content", ""))
		if content == "" {
			return
		}
		for key, match := range metaTags {
			if _, exists := meta[key]; exists {
				continue
			}
			if strings.EqualFold(sel.AttrOr(match[0], ""), match[1]) {
				meta[key] = content
			}
		}
	})
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// collectFileLinks gathers every .pdf/.ics link in the full page, resolved
// against the response URL and deduplicated within the page.
func collectFileLinks(doc *goquery.Document, pageURL *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		lowered := strings.ToLower(href)
		if !strings.HasSuffix(lowered, ".pdf") && !strings.HasSuffix(lowered, ".ics") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := pageURL.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}
