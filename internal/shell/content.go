package shell

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// PreloadPath is where the page bridge script is served.
const PreloadPath = "/__signmeup/preload.js"

// ContentMode says where the page comes from.
type ContentMode int

const (
	// ContentMissing means no bundle was found; a failure page is served.
	ContentMissing ContentMode = iota
	// ContentDev proxies the front-end dev server.
	ContentDev
	// ContentBundle serves a built index.html and its siblings from disk.
	ContentBundle
)

func (m ContentMode) String() string {
	switch m {
	case ContentDev:
		return "dev"
	case ContentBundle:
		return "bundle"
	default:
		return "missing"
	}
}

// Content is the resolved page source.
type Content struct {
	Mode ContentMode

	DevURL    *url.URL
	IndexPath string

	// Tried lists the bundle locations probed, in order.
	Tried []string
}

// BundleCandidates returns the index.html locations checked in packaged
// mode, relative to the application resources directory.
func BundleCandidates(resourcesDir string) []string {
	return []string{
		filepath.Join(resourcesDir, "..", "eco.cassa.front", "eco.cassa.front", "dist", "index.html"),
		filepath.Join(resourcesDir, "..", "eco.cassa.front", "dist", "index.html"),
	}
}

// ResolveContent picks the dev server when not packaged, otherwise the first
// bundle candidate that exists. A missing bundle is not an error; the
// returned Content serves a failure page instead.
func ResolveContent(packaged bool, resourcesDir, devURL string) (Content, error) {
	if !packaged {
		u, err := url.Parse(devURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Content{}, fmt.Errorf("invalid dev server url %q", devURL)
		}
		return Content{Mode: ContentDev, DevURL: u}, nil
	}

	c := Content{Mode: ContentMissing}
	for _, candidate := range BundleCandidates(resourcesDir) {
		c.Tried = append(c.Tried, candidate)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			c.Mode = ContentBundle
			c.IndexPath = candidate
			return c, nil
		}
	}
	return c, nil
}

// Handler serves the page with the bridge script injected into HTML.
func (c Content) Handler(logger *log.Logger) http.Handler {
	switch c.Mode {
	case ContentDev:
		return devProxy(c.DevURL, logger)
	case ContentBundle:
		return bundleHandler(c.IndexPath, logger)
	default:
		return failureHandler(c.Tried)
	}
}

func devProxy(target *url.URL, logger *log.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		// Injection needs an uncompressed body.
		r.Header.Del("Accept-Encoding")
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		if !isHTML(resp.Header.Get("Content-Type")) || resp.Header.Get("Content-Encoding") != "" {
			return nil
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		body = injectPreload(body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
		resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("failed to load content from dev server", "url", target.String(), "err", err)
		renderFailure(w, http.StatusBadGateway, "The development server at "+target.String()+" is not reachable.", nil)
	}
	return proxy
}

func bundleHandler(indexPath string, logger *log.Logger) http.Handler {
	root := filepath.Dir(indexPath)
	files := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() && name != indexPath {
			files.ServeHTTP(w, r)
			return
		}

		// Everything else is the single page.
		data, err := os.ReadFile(indexPath)
		if err != nil {
			logger.Error("failed to load content", "path", indexPath, "err", err)
			renderFailure(w, http.StatusInternalServerError, "The application bundle could not be read.", []string{indexPath})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(injectPreload(data))
	})
}

func failureHandler(tried []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderFailure(w, http.StatusServiceUnavailable, "The application bundle was not found.", tried)
	})
}

var failurePage = template.Must(template.New("failure").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>signmeup</title></head>
<body style="font-family:sans-serif;margin:3em">
<h1>Unable to load the application</h1>
<p>{{.Message}}</p>
{{if .Tried}}<p>Looked in:</p><ul>{{range .Tried}}<li><code>{{.}}</code></li>{{end}}</ul>{{end}}
</body></html>
`))

func renderFailure(w http.ResponseWriter, status int, message string, tried []string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = failurePage.Execute(w, struct {
		Message string
		Tried   []string
	}{message, tried})
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

var preloadTag = []byte(`<script src="` + PreloadPath + `"></script>`)

// injectPreload places the bridge script first in <head> so it runs before
// any application script.
func injectPreload(page []byte) []byte {
	if bytes.Contains(page, preloadTag) {
		return page
	}
	lower := bytes.ToLower(page)
	for off := 0; ; {
		i := bytes.Index(lower[off:], []byte("<head"))
		if i < 0 {
			break
		}
		i += off
		next := i + len("<head")
		// Skip <header>.
		if next < len(page) && (page[next] == '>' || page[next] == ' ' || page[next] == '\t' || page[next] == '\n') {
			if end := bytes.IndexByte(page[next:], '>'); end >= 0 {
				return splice(page, next+end+1)
			}
		}
		off = next
	}
	return splice(page, 0)
}

func splice(page []byte, at int) []byte {
	out := make([]byte, 0, len(page)+len(preloadTag))
	out = append(out, page[:at]...)
	out = append(out, preloadTag...)
	return append(out, page[at:]...)
}
