// Package favicon discovers a site's icon and stores a local copy.
//
// Resolution is best effort: Resolve never fails, it returns "" when no
// usable icon was found and logs why.
package favicon

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/internal/assets"
)

// Defaults for outbound requests.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxRedirects = 3
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Icon link patterns, rel before href and href before rel.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<link[^>]+rel=["'](?:icon|shortcut icon|apple-touch-icon)["'][^>]+href=["']([^"']+)["']`),
	regexp.MustCompile(`(?i)<link[^>]+href=["']([^"']+)["'][^>]+rel=["'](?:icon|shortcut icon|apple-touch-icon)["']`),
}

// Saver persists icon bytes and returns their public path.
type Saver interface {
	Save(data []byte, ext, seed string) (string, error)
}

// Resolver finds and stores favicons.
type Resolver struct {
	fetcher Fetcher
	saver   Saver
	log     logrus.FieldLogger
}

// NewResolver returns a Resolver that downloads with fetcher and stores
// with saver.
func NewResolver(fetcher Fetcher, saver Saver, logger logrus.FieldLogger) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{
		fetcher: fetcher,
		saver:   saver,
		log:     logger.WithField("component", "favicon"),
	}
}

// Resolve returns the public path of a stored icon for sourceURL, or ""
// when none could be obtained. Only http and https URLs are fetched.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) string {
	log := r.log.WithField("url", sourceURL)

	page, ok := parseSource(sourceURL)
	if !ok {
		log.Debug("favicon lookup not attempted")
		return ""
	}

	var declared string
	if body, err := r.fetcher.Fetch(ctx, sourceURL); err != nil {
		log.WithError(err).Debug("page fetch failed")
	} else {
		declared = declaredIcon(page, string(body))
	}

	for _, candidate := range candidates(page, sourceURL, declared) {
		data, err := r.fetcher.Fetch(ctx, candidate)
		if err != nil {
			log.WithField("candidate", candidate).WithError(err).Debug("candidate rejected")
			continue
		}
		mime, ok := assets.DetectImage(data)
		if !ok {
			log.WithFields(logrus.Fields{"candidate": candidate, "mime": mime}).Debug("candidate is not an image")
			continue
		}

		stored, err := r.saver.Save(data, extension(mime, candidate), sourceURL)
		if err != nil {
			log.WithField("candidate", candidate).WithError(err).Warn("storing favicon failed")
			continue
		}
		log.WithFields(logrus.Fields{"candidate": candidate, "path": stored}).Info("favicon stored")
		return stored
	}

	log.Info("favicon lookup attempted, no icon found")
	return ""
}

// parseSource accepts absolute http(s) URLs with a host.
func parseSource(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	default:
		return nil, false
	}
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// declaredIcon returns the absolute URL of the first icon link in markup.
func declaredIcon(page *url.URL, markup string) string {
	for _, re := range linkPatterns {
		if m := re.FindStringSubmatch(markup); m != nil {
			return absolutize(page, strings.TrimSpace(m[1]))
		}
	}
	return ""
}

// absolutize resolves href against the page origin.
func absolutize(page *url.URL, href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return page.Scheme + ":" + href
	case strings.Contains(href, "://"):
		return href
	case strings.HasPrefix(href, "/"):
		return origin(page) + href
	default:
		return origin(page) + "/" + href
	}
}

// candidates lists the icon URLs to try, in order, without duplicates.
func candidates(page *url.URL, sourceURL, declared string) []string {
	list := []string{
		declared,
		origin(page) + "/favicon.ico",
		origin(page) + "/favicon.png",
		strings.TrimRight(sourceURL, "/") + "/favicon.ico",
	}
	return lo.Uniq(lo.Compact(list))
}

// extension picks the stored file extension from the sniffed MIME type,
// then the candidate URL, then png.
func extension(mime, candidate string) string {
	if ext, ok := assets.ExtensionFor(mime); ok {
		return ext
	}
	if u, err := url.Parse(candidate); err == nil {
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
		if lo.Contains(assets.Extensions, ext) {
			return ext
		}
	}
	return "png"
}
