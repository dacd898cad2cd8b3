package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hszk-dev/mediacache/internal/domain/model"
)

const defaultScrapeTitle = "Instagram"

// maxPageBytes caps how much of the page is read when looking for meta tags.
const maxPageBytes = 8 << 20

// openGraphMedia is the media advertised in a page's Open Graph meta tags.
type openGraphMedia struct {
	URL   string
	Type  model.AssetType // video or photo; empty when the page advertises neither
	Title string
}

// parseOpenGraph reads og:video, og:image and og:title. og:video wins over og:image.
func parseOpenGraph(r io.Reader) (openGraphMedia, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return openGraphMedia{}, fmt.Errorf("failed to parse page: %w", err)
	}

	props := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			var property, content string
			for _, a := range n.Attr {
				switch strings.ToLower(a.Key) {
				case "property":
					property = strings.ToLower(a.Val)
				case "content":
					content = a.Val
				}
			}
			if _, seen := props[property]; !seen && property != "" && content != "" {
				props[property] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	media := openGraphMedia{Title: defaultScrapeTitle}
	if t := props["og:title"]; t != "" {
		media.Title = t
	}

	switch {
	case props["og:video"] != "":
		media.URL = props["og:video"]
		media.Type = model.AssetTypeVideo
	case props["og:image"] != "":
		media.URL = props["og:image"]
		media.Type = model.AssetTypePhoto
	}
	return media, nil
}

// fallbackFileName picks the local file name from the media URL's extension.
func fallbackFileName(mediaURL string, assetType model.AssetType) string {
	ext := ""
	if u, err := url.Parse(mediaURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}

	if assetType == model.AssetTypeVideo {
		switch ext {
		case ".mp4", ".webm", ".mov":
		default:
			ext = ".mp4"
		}
	} else {
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
		default:
			ext = ".jpg"
		}
	}
	return "instagram_fallback" + ext
}

// scrapeFallback downloads the Open Graph media of pageURL into workDir.
// The descriptor it returns has no duration, thumbnail or audio.
func (r *Resolver) scrapeFallback(ctx context.Context, pageURL string, platform model.Platform, workDir, cookiesPath string) (*model.AssetDescriptor, error) {
	cookieHeader := CookieHeader(cookiesPath, cookieDomains[platform])

	media, err := r.fetchOpenGraph(ctx, pageURL, cookieHeader)
	if err != nil {
		return nil, err
	}
	if media.URL == "" {
		return nil, fmt.Errorf("page has no og:video or og:image")
	}

	dest := filepath.Join(workDir, fallbackFileName(media.URL, media.Type))
	if err := r.downloadFile(ctx, media.URL, dest, cookieHeader); err != nil {
		return nil, err
	}

	return model.NewAssetDescriptor(workDir, model.AssetDescriptor{
		LocalFilePath: dest,
		Title:         media.Title,
		Platform:      platform,
		SourceURL:     pageURL,
		Type:          media.Type,
	}), nil
}

func (r *Resolver) fetchOpenGraph(ctx context.Context, pageURL, cookieHeader string) (openGraphMedia, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	req, err := r.newScrapeRequest(ctx, pageURL, cookieHeader)
	if err != nil {
		return openGraphMedia{}, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return openGraphMedia{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return openGraphMedia{}, fmt.Errorf("failed to fetch page: status %d", resp.StatusCode)
	}

	return parseOpenGraph(io.LimitReader(resp.Body, maxPageBytes))
}

func (r *Resolver) downloadFile(ctx context.Context, fileURL, dest, cookieHeader string) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	req, err := r.newScrapeRequest(ctx, fileURL, cookieHeader)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download media: status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write media: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("downloaded media is empty")
	}
	return nil
}

func (r *Resolver) newScrapeRequest(ctx context.Context, target, cookieHeader string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", r.config.UserAgent)
	req.Header.Set("Referer", "https://www.instagram.com/")
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	return req, nil
}
