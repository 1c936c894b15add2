package scraper

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// restoreCookies copies the cookie jar into the browser.
func (session *Session) restoreCookies(ctx context.Context) error {
	if session.jar == nil {
		return nil
	}
	cookies := session.jar.AllCookies()
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, cookieParam(c))
	}
	session.Printf("restoring %d cookies from %v", len(params), session.CookieFile)
	return network.SetCookies(params).Do(ctx)
}

// storeCookies saves the browser's cookies to the jar file.
func (session *Session) storeCookies(ctx context.Context) error {
	if session.jar == nil {
		return nil
	}
	cookies, err := network.GetCookies().Do(ctx)
	if err != nil {
		return err
	}
	for _, c := range cookies {
		u, hc := httpCookie(c)
		session.jar.SetCookies(u, []*http.Cookie{hc})
	}
	return session.jar.Save()
}

func cookieParam(c *http.Cookie) *network.CookieParam {
	param := &network.CookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		expires := cdp.TimeSinceEpoch(c.Expires)
		param.Expires = &expires
	}
	return param
}

func httpCookie(c *network.Cookie) (*url.URL, *http.Cookie) {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: strings.TrimPrefix(c.Domain, "."), Path: c.Path}

	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if strings.HasPrefix(c.Domain, ".") {
		hc.Domain = c.Domain
	}
	if !c.Session && c.Expires > 0 {
		sec, frac := math.Modf(c.Expires)
		hc.Expires = time.Unix(int64(sec), int64(frac*1e9))
	}
	return u, hc
}
