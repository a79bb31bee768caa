package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// indexNames are the page source file names the builder treats as a route
// entry within a leaf directory.
var indexNames = []string{"index.jsx", "index.tsx", "index.js"}

var paramSegmentRe = regexp.MustCompile(`^\[([^\]]*)\]$`)

// Build walks pagesDir and returns a deterministic, specificity-ordered route
// manifest. Directory names of the form [name] become param segments; every
// other directory name is a literal segment. The root page (an index file
// directly under pagesDir) maps to the empty path.
func Build(pagesDir string) (Manifest, error) {
	var routes []RouteDescriptor

	err := filepath.WalkDir(pagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isIndexFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(pagesDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		dir := strings.TrimSuffix(rel, "/"+d.Name())
		if dir == rel {
			dir = "" // index file directly under pagesDir
		}

		segments, err := segmentsFromDir(dir)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		routes = append(routes, RouteDescriptor{
			Path:     dir,
			Segments: segments,
			Filename: filepath.ToSlash(filepath.Join(dir, "index.html")),
			Source:   filepath.ToSlash(filepath.Join(pagesDir, rel)),
		})
		return nil
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: failed to walk %s: %w", pagesDir, err)
	}

	orderRoutes(routes)
	return Manifest{Routes: routes}, nil
}

func isIndexFile(name string) bool {
	for _, n := range indexNames {
		if name == n {
			return true
		}
	}
	return false
}

// segmentsFromDir converts a slash-separated directory path into an ordered
// segment list, validating that every [name] segment carries a non-empty
// identifier.
func segmentsFromDir(dir string) ([]Segment, error) {
	if dir == "" {
		return nil, nil
	}
	return parseSegmentsStrict(dir)
}

// parseSegmentsStrict is like parseSegments but rejects malformed [] segments;
// it is used at manifest-build time where a descriptive error is expected.
func parseSegmentsStrict(path string) ([]Segment, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if m := paramSegmentRe.FindStringSubmatch(part); m != nil {
			name := m[1]
			if name == "" {
				return nil, fmt.Errorf("malformed dynamic segment %q: parameter name must not be empty", part)
			}
			segments = append(segments, Segment{Kind: Param, Param: name})
			continue
		}
		segments = append(segments, Segment{Kind: Literal, Literal: part})
	}
	return segments, nil
}

// parseSegments is the permissive counterpart used when loading a manifest
// already persisted to disk — malformed segments there are simply treated as
// literals rather than rejected, since the bundler is assumed to have
// produced a valid manifest already.
func parseSegments(path string) []Segment {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if m := paramSegmentRe.FindStringSubmatch(part); m != nil && m[1] != "" {
			segments = append(segments, Segment{Kind: Param, Param: m[1]})
			continue
		}
		segments = append(segments, Segment{Kind: Literal, Literal: part})
	}
	return segments
}

// orderRoutes sorts routes by specificity: fewer dynamic segments first,
// then longer literal prefixes first, ties broken lexicographically by path.
func orderRoutes(routes []RouteDescriptor) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		da, db := dynamicCount(a.Segments), dynamicCount(b.Segments)
		if da != db {
			return da < db
		}
		la, lb := literalPrefixLen(a.Segments), literalPrefixLen(b.Segments)
		if la != lb {
			return la > lb
		}
		return a.Path < b.Path
	})
}

func dynamicCount(segments []Segment) int {
	n := 0
	for _, s := range segments {
		if s.Kind == Param {
			n++
		}
	}
	return n
}

// literalPrefixLen counts the number of leading literal segments before the
// first param segment (or the full length if there is none).
func literalPrefixLen(segments []Segment) int {
	n := 0
	for _, s := range segments {
		if s.Kind != Literal {
			break
		}
		n++
	}
	return n
}

// Load reads a manifest previously persisted by the bundler or generator.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: failed to read %s: %w", path, err)
	}
	var m Manifest
	if err := m.UnmarshalJSON(data); err != nil {
		return Manifest{}, fmt.Errorf("manifest: failed to parse %s: %w", path, err)
	}
	return m, nil
}

// Save persists the manifest back to disk, preserving route order.
func Save(path string, m Manifest) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("manifest: failed to encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: failed to write %s: %w", path, err)
	}
	return nil
}
