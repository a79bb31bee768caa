package assets

import (
	"strings"
	"testing"
)

func TestInject_Empty_NoOp(t *testing.T) {
	doc := "<html><head></head></html>"
	out := Inject(doc, nil, nil, "/")
	if out != doc {
		t.Errorf("expected no-op, got %s", out)
	}
}

func TestInject_OrderAndPrefix(t *testing.T) {
	doc := "<html><head></head><body></body></html>"
	out := Inject(doc, []string{"about/index.A1.css"}, []string{"about/index.A1.js"}, "/")

	wantCSS := `<link rel="stylesheet" href="/about/index.A1.css">`
	wantJS := `<script type="module" src="/about/index.A1.js"></script>`

	if !strings.Contains(out, wantCSS) {
		t.Errorf("missing css tag, got %s", out)
	}
	if !strings.Contains(out, wantJS) {
		t.Errorf("missing js tag, got %s", out)
	}
	if strings.Index(out, wantCSS) > strings.Index(out, wantJS) {
		t.Error("css should come before js, matching input order")
	}
	if strings.Index(out, wantCSS) > strings.Index(out, "</head>") {
		t.Error("assets must be inserted before </head>")
	}
}

func TestInject_ExactCounts(t *testing.T) {
	doc := "<html><head></head></html>"
	css := []string{"a.css", "b.css"}
	js := []string{"c.js"}
	out := Inject(doc, css, js, "")

	if strings.Count(out, "<link rel=\"stylesheet\"") != len(css) {
		t.Errorf("expected %d stylesheet links, got: %s", len(css), out)
	}
	if strings.Count(out, "<script type=\"module\"") != len(js) {
		t.Errorf("expected %d script tags, got: %s", len(js), out)
	}
}

func TestNormalizePublicPath(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"/":       "/",
		"static":  "/static/",
		"/static": "/static/",
		"/static/": "/static/",
	}
	for in, want := range cases {
		if got := NormalizePublicPath(in); got != want {
			t.Errorf("NormalizePublicPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInject_NoDoubleSlashWithRootPublicPath(t *testing.T) {
	doc := "<html><head></head></html>"
	out := Inject(doc, []string{"index.css"}, nil, "/")
	if strings.Contains(out, `href="//index.css"`) {
		t.Errorf("double slash in href: %s", out)
	}
	if !strings.Contains(out, `href="/index.css"`) {
		t.Errorf("expected single leading slash: %s", out)
	}
}
