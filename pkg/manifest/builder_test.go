package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writePage(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("export default () => '<html></html>'"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild_OrdersBySpecificity(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "index.jsx")
	writePage(t, dir, "about/index.jsx")
	writePage(t, dir, "blog/[slug]/index.jsx")
	writePage(t, dir, "blog/new/index.jsx")
	writePage(t, dir, "user/[id]/posts/index.jsx")

	m, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var order []string
	for _, r := range m.Routes {
		order = append(order, r.Path)
	}

	want := []string{"blog/new", "about", "", "blog/[slug]", "user/[id]/posts"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q (full: %v)", i, order[i], want[i], order)
		}
	}
}

func TestBuild_RootRoute(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "index.jsx")

	m, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(m.Routes))
	}
	if m.Routes[0].Path != "" {
		t.Errorf("root path = %q, want empty", m.Routes[0].Path)
	}
	if m.Routes[0].Filename != "index.html" {
		t.Errorf("filename = %q, want index.html", m.Routes[0].Filename)
	}
	if m.Routes[0].Dynamic() {
		t.Error("root route should be static")
	}
}

func TestBuild_MalformedDynamicSegment(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "blog/[]/index.jsx")

	if _, err := Build(dir); err == nil {
		t.Fatal("expected error for malformed dynamic segment")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := Manifest{Routes: []RouteDescriptor{
		{
			Path:     "about",
			Segments: []Segment{{Kind: Literal, Literal: "about"}},
			Filename: "about/index.html",
			Source:   "src/pages/about/index.jsx",
			Assets:   Assets{CSS: []string{"about/index.A1.css"}, JS: []string{"about/index.A1.js"}},
		},
		{
			Path:     "blog/[slug]",
			Segments: []Segment{{Kind: Literal, Literal: "blog"}, {Kind: Param, Param: "slug"}},
			Filename: "blog/[slug]/index.html",
			Source:   "src/pages/blog/[slug]/index.jsx",
		},
	}}

	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(loaded.Routes))
	}
	if loaded.Routes[0].Filename != "about/index.html" {
		t.Errorf("filename mismatch: %q", loaded.Routes[0].Filename)
	}
	if len(loaded.Routes[0].Assets.CSS) != 1 || loaded.Routes[0].Assets.CSS[0] != "about/index.A1.css" {
		t.Errorf("css assets mismatch: %v", loaded.Routes[0].Assets)
	}
	if !loaded.Routes[1].Dynamic() {
		t.Error("expected blog/[slug] to be dynamic after reload")
	}
}

func TestBuild_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	m, err := Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Routes) != 0 {
		t.Errorf("expected no routes, got %d", len(m.Routes))
	}
}
