package scraper

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// Page is a parsed snapshot of the rendered document.
type Page struct {
	*goquery.Document
	BaseUrl *url.URL
	Logger  Logger
}

func (page *Page) Title() string {
	return strings.TrimSpace(page.Find("head title").First().Text())
}

// snapshot must be called with mu held.
func (session *Session) snapshot(ctx context.Context) (*Page, string, error) {
	var html, location string
	err := chromedp.Run(ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", err
	}
	baseUrl, err := url.Parse(location)
	if err != nil {
		return nil, "", err
	}
	doc.Url = baseUrl

	if href, ok := doc.Find("head base").Attr("href"); ok {
		if resolved, err := baseUrl.Parse(href); err == nil {
			baseUrl = resolved
		}
	}
	return &Page{doc, baseUrl, session}, html, nil
}

// Page parses the current DOM of the page.
func (session *Session) Page(ctx context.Context) (*Page, error) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.ready(OpPage); err != nil {
		return nil, err
	}

	opCtx, cancel := session.opContext(ctx, session.waitTimeout())
	defer cancel()

	page, _, err := session.snapshot(opCtx)
	if err != nil {
		return nil, session.fail(OpPage, err)
	}
	return page, nil
}

func (session *Session) getDirectory() string {
	return fmt.Sprintf("%v%v", session.FilePrefix, session.Name)
}

func (session *Session) getHtmlFilename() string {
	return path.Join(session.getDirectory(), fmt.Sprintf("%v.html", session.invokeCount))
}

// savePage writes the rendered document and its metadata to the session
// directory. It must be called with mu held.
func (session *Session) savePage(ctx context.Context) error {
	page, html, err := session.snapshot(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(session.getDirectory(), os.FileMode(0744)); err != nil {
		return err
	}
	session.invokeCount++
	filename := session.getHtmlFilename()

	session.Printf("**** SAVE to %v (%v bytes)", filename, len(html))
	if err := os.WriteFile(filename, []byte(html), os.FileMode(0644)); err != nil {
		return err
	}
	return savePageMetadata(filename, PageMetadata{
		URL:   page.Url.String(),
		Title: page.Title(),
	})
}
