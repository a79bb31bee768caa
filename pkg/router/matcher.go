// Package router implements the pure route-matching function that the dev
// and prod servers share: given a decoded pathname and a manifest, find the
// first descriptor whose segment shape matches and capture its params.
package router

import (
	"strings"

	"github.com/sxo-dev/sxo/pkg/manifest"
)

// Match holds a matched descriptor together with its captured parameters.
type Match struct {
	Route  manifest.RouteDescriptor
	Params map[string]string
}

// Find scans m in order and returns the first descriptor whose segments
// match pathname positionally. pathname is assumed already URL-decoded with
// any leading slash stripped (splitPath strips one regardless). A trailing
// slash is ignored; an empty pathname matches a zero-segment route.
func Find(m manifest.Manifest, pathname string) (Match, bool) {
	parts := splitPath(pathname)

	for _, route := range m.Routes {
		if len(route.Segments) != len(parts) {
			continue
		}
		params, ok := matchSegments(route.Segments, parts)
		if !ok {
			continue
		}
		return Match{Route: route, Params: params}, true
	}
	return Match{}, false
}

// splitPath splits a pathname into non-empty segments; "" and "/" both yield
// zero segments, and a trailing slash is ignored.
func splitPath(pathname string) []string {
	trimmed := strings.Trim(pathname, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(segments []manifest.Segment, parts []string) (map[string]string, bool) {
	var params map[string]string
	for i, seg := range segments {
		switch seg.Kind {
		case manifest.Literal:
			if seg.Literal != parts[i] {
				return nil, false
			}
		case manifest.Param:
			if params == nil {
				params = make(map[string]string, len(segments))
			}
			params[seg.Param] = parts[i]
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}
