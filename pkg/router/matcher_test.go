package router

import (
	"testing"

	"github.com/sxo-dev/sxo/pkg/manifest"
)

func seg(kind manifest.SegmentKind, v string) manifest.Segment {
	if kind == manifest.Param {
		return manifest.Segment{Kind: manifest.Param, Param: v}
	}
	return manifest.Segment{Kind: manifest.Literal, Literal: v}
}

func testManifest() manifest.Manifest {
	return manifest.Manifest{Routes: []manifest.RouteDescriptor{
		{Path: "", Filename: "index.html"},
		{Path: "about", Segments: []manifest.Segment{seg(manifest.Literal, "about")}, Filename: "about/index.html"},
		{Path: "blog/new", Segments: []manifest.Segment{seg(manifest.Literal, "blog"), seg(manifest.Literal, "new")}, Filename: "blog/new/index.html"},
		{Path: "blog/[slug]", Segments: []manifest.Segment{seg(manifest.Literal, "blog"), seg(manifest.Param, "slug")}, Filename: "blog/[slug]/index.html"},
		{Path: "user/[id]/posts", Segments: []manifest.Segment{seg(manifest.Literal, "user"), seg(manifest.Param, "id"), seg(manifest.Literal, "posts")}, Filename: "user/[id]/posts/index.html"},
	}}
}

func TestFind_Root(t *testing.T) {
	m, ok := Find(testManifest(), "")
	if !ok {
		t.Fatal("expected root match")
	}
	if m.Route.Filename != "index.html" {
		t.Errorf("got %q", m.Route.Filename)
	}
	if len(m.Params) != 0 {
		t.Errorf("expected no params, got %v", m.Params)
	}
}

func TestFind_TrailingSlashIgnored(t *testing.T) {
	m, ok := Find(testManifest(), "about/")
	if !ok || m.Route.Filename != "about/index.html" {
		t.Fatalf("expected about match, got %+v ok=%v", m, ok)
	}
}

func TestFind_StaticBeatsParamSibling(t *testing.T) {
	m, ok := Find(testManifest(), "blog/new")
	if !ok {
		t.Fatal("expected match")
	}
	if m.Route.Filename != "blog/new/index.html" {
		t.Errorf("static literal route should win over dynamic sibling, got %q", m.Route.Filename)
	}
}

func TestFind_DynamicCapture(t *testing.T) {
	m, ok := Find(testManifest(), "blog/hello-world")
	if !ok {
		t.Fatal("expected match")
	}
	if m.Params["slug"] != "hello-world" {
		t.Errorf("params = %v", m.Params)
	}
}

func TestFind_NestedParam(t *testing.T) {
	m, ok := Find(testManifest(), "user/123/posts")
	if !ok {
		t.Fatal("expected match")
	}
	if m.Params["id"] != "123" {
		t.Errorf("params = %v", m.Params)
	}
}

func TestFind_NotFound(t *testing.T) {
	if _, ok := Find(testManifest(), "nope"); ok {
		t.Error("expected no match")
	}
}

func TestFind_UniqueMatchInvariant(t *testing.T) {
	// For every path tried, the matcher reports exactly one descriptor when
	// any descriptor fits structurally (blog/new fits two here): the first
	// fitting one in manifest order.
	paths := []string{"", "about", "blog/new", "blog/anything", "user/1/posts", "missing"}
	mf := testManifest()
	for _, p := range paths {
		first := -1
		parts := splitPath(p)
		for i, r := range mf.Routes {
			if len(r.Segments) != len(parts) {
				continue
			}
			if _, ok := matchSegments(r.Segments, parts); ok {
				first = i
				break
			}
		}
		m, ok := Find(mf, p)
		if ok != (first >= 0) {
			t.Errorf("path %q: Find ok = %v, want %v", p, ok, first >= 0)
			continue
		}
		if ok && m.Route.Filename != mf.Routes[first].Filename {
			t.Errorf("path %q matched %q; matcher must pick exactly one, the first fitting descriptor %q", p, m.Route.Filename, mf.Routes[first].Filename)
		}
	}
}
