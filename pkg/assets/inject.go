// Package assets inserts per-route stylesheet and script tags into a
// rendered document, prefixed by a normalised public-path.
package assets

import (
	"fmt"
	"strings"
)

// Inject inserts a <link rel="stylesheet"> for each entry in css and a
// <script type="module"> for each entry in js, in that order, before the
// document's first </head>. publicPath is normalised first (see
// NormalizePublicPath); an empty css and js pair is a no-op.
func Inject(doc string, css, js []string, publicPath string) string {
	if len(css) == 0 && len(js) == 0 {
		return doc
	}

	prefix := NormalizePublicPath(publicPath)

	var b strings.Builder
	for _, href := range css {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s%s">`, prefix, href)
		b.WriteByte('\n')
	}
	for _, src := range js {
		fmt.Fprintf(&b, `<script type="module" src="%s%s"></script>`, prefix, src)
		b.WriteByte('\n')
	}
	block := strings.TrimSuffix(b.String(), "\n")

	idx := strings.Index(doc, "</head>")
	if idx == -1 {
		if doc == "" {
			return block
		}
		return doc + "\n" + block
	}
	return doc[:idx] + block + "\n" + doc[idx:]
}

// NormalizePublicPath ensures the result is either the empty string (caller
// supplied empty, disabling prefixing entirely) or a single leading slash
// followed by the trimmed path and a single trailing slash — exactly one
// separator between the prefix and whatever asset path gets appended to it,
// never a double slash.
func NormalizePublicPath(publicPath string) string {
	if publicPath == "" {
		return ""
	}
	trimmed := strings.Trim(publicPath, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}
