// Package head renders a page module's head export into the managed
// sentinel block of a server-rendered HTML document. The tag classification
// tables below (void / force-closing / other) are the head-applier's
// analogue of the void/boolean-attribute tables an HTML-from-tree renderer
// needs; here they drive flat {tag, attrs, content} entries instead of a
// VNode tree.
package head

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

const (
	sentinelStart = "<!--sxo:head:start-->"
	sentinelEnd   = "<!--sxo:head:end-->"
)

// voidTags never carry a body or a closing tag.
var voidTags = map[string]bool{
	"meta": true,
	"link": true,
	"base": true,
}

// forceClosingTags always emit an explicit closing tag and may carry an
// inline body.
var forceClosingTags = map[string]bool{
	"script": true,
	"style":  true,
	"title":  true,
}

// attrAliases maps a camelCased alias to its canonical hyphenated HTML
// attribute name.
var attrAliases = map[string]string{
	"httpEquiv": "http-equiv",
}

// Attr is a single attribute key/value pair.
type Attr struct {
	Key   string
	Value any
}

// Bag is a single tag's attribute set, in declaration order — a page
// author writing Bag{{"name", "description"}, {"content", "x"}} gets
// exactly that attribute order in the rendered tag. "content" is the inner
// text for force-closing tags and is ignored (as a body) for void tags.
type Bag []Attr

// MapBag builds a Bag from a plain map, ordering keys lexicographically
// since a Go map carries no declaration order to preserve. Prefer a Bag
// literal when attribute order matters, e.g. for <meta> tags.
func MapBag(m map[string]any) Bag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	bag := make(Bag, 0, len(keys))
	for _, k := range keys {
		bag = append(bag, Attr{Key: k, Value: m[k]})
	}
	return bag
}

func (b Bag) get(key string) (any, bool) {
	for _, a := range b {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// TagValue is one key of a head export: a tag name paired with either a
// single Bag, a slice of Bags, or (title only) a scalar. Spec is ordered
// (unlike a plain map) so that multiple tags render in the order the page
// author declared them.
type TagValue struct {
	Tag   string
	Value any
}

// Spec is the normalised, ordered head export.
type Spec []TagValue

// MapSpec builds a Spec from a plain map, ordering tags lexicographically.
// Prefer constructing a Spec literal directly when declaration order
// matters; MapSpec exists for page modules that hand back a map[string]any.
func MapSpec(m map[string]any) Spec {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	spec := make(Spec, 0, len(keys))
	for _, k := range keys {
		spec = append(spec, TagValue{Tag: k, Value: m[k]})
	}
	return spec
}

// Params is the route's captured parameter map, passed to a callable head
// export.
type Params map[string]string

// HeadFunc is the shape of a callable head export.
type HeadFunc func(Params) (Spec, error)

// entry is one flattened {tag, attrs, content} unit ready for rendering.
type entry struct {
	tag     string
	attrs   Bag
	content string
	hasBody bool
}

// Apply removes any existing managed head block from doc and, if head
// produces a usable spec, inserts a freshly rendered one before the first
// </head> (or at the end of the document if </head> is absent).
//
// head may be nil, a Spec, a map[string]any, a HeadFunc, or a scalar title
// (string/int/float); anything else is treated as "no head export". If head
// is a HeadFunc and it returns an error, Apply silently returns the cleaned
// document — a failing head export must never be worse than the document
// without it.
func Apply(doc string, head any, params Params) string {
	cleaned := strip(doc)

	spec, ok := normalize(head, params)
	if !ok {
		return cleaned
	}

	entries := flatten(spec)
	if len(entries) == 0 {
		return cleaned
	}

	return insert(cleaned, render(entries))
}

func normalize(head any, params Params) (Spec, bool) {
	switch v := head.(type) {
	case nil:
		return nil, false
	case Spec:
		return v, true
	case map[string]any:
		return MapSpec(v), true
	case HeadFunc:
		spec, err := v(params)
		if err != nil {
			return nil, false
		}
		return spec, true
	case func(Params) (Spec, error):
		spec, err := v(params)
		if err != nil {
			return nil, false
		}
		return spec, true
	case string:
		if v == "" {
			return nil, false
		}
		return Spec{{Tag: "title", Value: v}}, true
	case int, int64, float64:
		return Spec{{Tag: "title", Value: fmt.Sprint(v)}}, true
	case func() (string, error):
		s, err := v()
		if err != nil || s == "" {
			return nil, false
		}
		return Spec{{Tag: "title", Value: s}}, true
	default:
		return nil, false
	}
}

// flatten builds an ordered list of render entries from a normalised spec.
func flatten(spec Spec) []entry {
	var entries []entry
	for _, tv := range spec {
		entries = append(entries, flattenTag(tv.Tag, tv.Value)...)
	}
	return entries
}

func flattenTag(tag string, value any) []entry {
	switch v := value.(type) {
	case nil:
		return nil
	case []Bag:
		out := make([]entry, 0, len(v))
		for _, b := range v {
			out = append(out, bagToEntry(tag, b))
		}
		return out
	case []map[string]any:
		out := make([]entry, 0, len(v))
		for _, b := range v {
			out = append(out, bagToEntry(tag, MapBag(b)))
		}
		return out
	case Bag:
		return []entry{bagToEntry(tag, v)}
	case map[string]any:
		return []entry{bagToEntry(tag, MapBag(v))}
	case string:
		if tag != "title" || v == "" {
			return nil
		}
		return []entry{{tag: "title", content: v, hasBody: true}}
	case int, int64, float64:
		if tag != "title" {
			return nil
		}
		return []entry{{tag: "title", content: fmt.Sprint(v), hasBody: true}}
	case func() (string, error):
		if tag != "title" {
			return nil
		}
		s, err := v()
		if err != nil || s == "" {
			return nil
		}
		return []entry{{tag: "title", content: s, hasBody: true}}
	default:
		return nil
	}
}

func bagToEntry(tag string, bag Bag) entry {
	e := entry{tag: tag, attrs: bag}
	if c, ok := bag.get("content"); ok {
		if s, ok := c.(string); ok {
			e.content = s
			e.hasBody = true
		}
	}
	return e
}

func render(entries []entry) string {
	var b strings.Builder
	b.WriteString(sentinelStart)
	for _, e := range entries {
		b.WriteByte('\n')
		b.WriteString(renderEntry(e))
	}
	b.WriteByte('\n')
	b.WriteString(sentinelEnd)
	return b.String()
}

func renderEntry(e entry) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(e.tag)
	for _, attr := range e.attrs {
		if attr.Key == "content" && forceClosingTags[e.tag] {
			continue // becomes the inner body instead of an attribute
		}
		if rendered, ok := renderAttr(attr.Key, attr.Value); ok {
			b.WriteByte(' ')
			b.WriteString(rendered)
		}
	}

	if voidTags[e.tag] {
		b.WriteByte('>')
		return b.String()
	}

	b.WriteByte('>')
	if e.hasBody {
		b.WriteString(html.EscapeString(e.content))
	}
	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteByte('>')
	return b.String()
}

func renderAttr(key string, value any) (string, bool) {
	if alias, ok := attrAliases[key]; ok {
		key = alias
	}

	switch v := value.(type) {
	case nil:
		return "", false
	case bool:
		if !v {
			return "", false
		}
		return key, true
	case string:
		return fmt.Sprintf(`%s="%s"`, key, escapeAttr(v)), true
	default:
		return fmt.Sprintf(`%s="%s"`, key, escapeAttr(fmt.Sprint(v))), true
	}
}

func escapeAttr(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return r.Replace(s)
}

// strip removes any existing managed head block (non-greedy) from doc.
func strip(doc string) string {
	for {
		start := strings.Index(doc, sentinelStart)
		if start == -1 {
			return doc
		}
		rest := strings.Index(doc[start:], sentinelEnd)
		if rest == -1 {
			return doc // unterminated block: leave untouched rather than guess
		}
		end := start + rest + len(sentinelEnd)
		// Also drop the newline insert placed beside the block, so that
		// stripping and re-inserting yields the same bytes.
		if strings.HasPrefix(doc[end:], "\n") {
			end++
		} else if end == len(doc) && start > 0 && doc[start-1] == '\n' {
			start--
		}
		doc = doc[:start] + doc[end:]
	}
}

// insert places block immediately before the first </head>, or appends it to
// the end of the document when no </head> is present.
func insert(doc, block string) string {
	idx := strings.Index(doc, "</head>")
	if idx == -1 {
		if doc == "" {
			return block
		}
		return doc + "\n" + block
	}
	return doc[:idx] + block + "\n" + doc[idx:]
}
