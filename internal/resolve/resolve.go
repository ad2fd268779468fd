// Package resolve rewrites relative asset references of a local document so
// that the headless host can fetch them after the document is moved to a
// temporary file.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidBase indicates a base that is neither an http(s)/file URL nor a
// directory path.
var ErrInvalidBase = errors.New("invalid base URL")

// cssURL matches url(...) with single, double or no quotes.
var cssURL = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")\s]+))\s*\)`)

// ParseBase turns s into a base URL. Empty input yields nil. Anything that is
// not an http, https or file URL is taken as a directory path.
func ParseBase(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "file://") {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
		}
		if u.Scheme != "file" && u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no host", ErrInvalidBase, s)
		}
		return u, nil
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}
	return DirURL(abs), nil
}

// DirURL returns the file:// URL of directory dir, with a trailing slash so
// that references resolve inside it.
func DirURL(dir string) *url.URL {
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows volume paths
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return &url.URL{Scheme: "file", Path: p}
}

// Rewrite resolves relative references against base and returns the
// rewritten document. A nil base returns the content unchanged.
//
// Rewrites:
//   - img[src], including the lazy-loading data-src variant
//   - svg image[href] and image[xlink:href]
//   - link[rel=stylesheet][href]
//   - url(...) inside style attributes and <style> elements
//
// For file bases, references escaping the base directory are left untouched.
func Rewrite(htmlContent string, base *url.URL) (string, error) {
	if base == nil {
		return htmlContent, nil
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}

	r := newResolver(base)
	r.walk(doc)

	return renderHTML(doc, isFragment)
}

// parseHTML parses HTML content, handling both full documents and fragments.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	// Fragment: parse with body context to avoid wrapping
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children (avoids adding <html><body> wrapper).
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type resolver struct {
	base    *url.URL
	baseDir string // set for file bases only
}

func newResolver(base *url.URL) *resolver {
	r := &resolver{base: base}
	if base.Scheme == "file" {
		r.baseDir = fileURLPath(base)
	}
	return r
}

func (r *resolver) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch {
		case n.DataAtom == atom.Img:
			r.rewriteAttr(n, "", "src")
			r.rewriteAttr(n, "", "data-src")
		case n.Namespace == "svg" && n.Data == "image":
			r.rewriteAttr(n, "", "href")
			r.rewriteAttr(n, "xlink", "href")
		case n.DataAtom == atom.Link && isStylesheet(n):
			r.rewriteAttr(n, "", "href")
		case n.DataAtom == atom.Style:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					c.Data = r.rewriteCSS(c.Data)
				}
			}
		}
		for i, a := range n.Attr {
			if a.Namespace == "" && a.Key == "style" {
				n.Attr[i].Val = r.rewriteCSS(a.Val)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func (r *resolver) rewriteAttr(n *html.Node, namespace, key string) {
	for i, a := range n.Attr {
		if a.Namespace != namespace || a.Key != key {
			continue
		}
		if resolved, ok := r.resolve(a.Val); ok {
			n.Attr[i].Val = resolved
		}
	}
}

func (r *resolver) rewriteCSS(css string) string {
	return cssURL.ReplaceAllStringFunc(css, func(m string) string {
		sub := cssURL.FindStringSubmatch(m)
		ref := sub[1] + sub[2] + sub[3] // exactly one group matched
		resolved, ok := r.resolve(ref)
		if !ok {
			return m
		}
		return `url("` + resolved + `")`
	})
}

// resolve returns the absolute form of ref and whether it was rewritten.
func (r *resolver) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if !isRelativeRef(ref) {
		return "", false
	}
	if r.baseDir != "" && strings.HasPrefix(ref, "/") {
		return "", false // absolute filesystem path
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := r.base.ResolveReference(u)

	// Security: validate path is under the base directory (prevent traversal)
	if r.baseDir != "" && !isPathUnderDir(fileURLPath(abs), r.baseDir) {
		return "", false
	}
	return abs.String(), true
}

// isRelativeRef reports whether ref needs a base to be fetched.
func isRelativeRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	if filepath.IsAbs(ref) && !strings.HasPrefix(ref, "/") {
		return false // Windows drive path
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" // data:, blob:, http: and friends are already absolute
}

func isStylesheet(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "rel" && strings.EqualFold(strings.TrimSpace(a.Val), "stylesheet") {
			return true
		}
	}
	return false
}

// fileURLPath converts a file URL path back to a native path.
func fileURLPath(u *url.URL) string {
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:] // "/C:/dir" -> "C:/dir"
	}
	return filepath.FromSlash(p)
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}
