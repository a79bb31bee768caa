package renderbridge

import (
	"context"
	"encoding/json"
	"testing"
)

func TestResolver_NoCommandConfiguredErrors(t *testing.T) {
	b := New(nil, ".")
	_, err := b.Resolver()("pages/index.jsx")
	if err == nil {
		t.Fatal("expected error when no render command is configured")
	}
}

// TestInvoke_RoundTripsRequestOverStdin uses "sh -c cat" (present on every
// POSIX system this module targets) to echo the encoded request straight
// back, confirming the bridge writes the source and params it was given
// rather than depending on a real JSX render process being installed. The
// source path the bridge appends as an argument becomes the shell's $0, so
// cat reads stdin only.
func TestInvoke_RoundTripsRequestOverStdin(t *testing.T) {
	b := New([]string{"sh", "-c", "cat"}, ".")

	var raw map[string]any
	_, err := b.invokeInto(context.Background(), "pages/blog/[slug]/index.jsx", map[string]string{"slug": "hello"}, &raw)
	if err != nil {
		t.Fatalf("invokeInto: %v", err)
	}
	if raw["source"] != "pages/blog/[slug]/index.jsx" {
		t.Errorf("source = %v", raw["source"])
	}
	params, ok := raw["params"].(map[string]any)
	if !ok || params["slug"] != "hello" {
		t.Errorf("params = %v", raw["params"])
	}
}

func TestInvoke_NonZeroExitIsError(t *testing.T) {
	b := New([]string{"false"}, ".")
	_, err := b.invoke(context.Background(), "pages/index.jsx", nil)
	if err == nil {
		t.Fatal("expected an error from a failing subprocess")
	}
}

func TestInvoke_MalformedOutputIsError(t *testing.T) {
	b := New([]string{"echo", "not json"}, ".")
	_, err := b.invoke(context.Background(), "pages/index.jsx", nil)
	if err == nil {
		t.Fatal("expected a decode error from non-JSON output")
	}
}

// invokeInto is a small test seam: same request-building path as invoke,
// decoded into an arbitrary shape instead of payload.
func (b *Bridge) invokeInto(ctx context.Context, source string, params map[string]string, out any) ([]byte, error) {
	stdout, err := b.run(ctx, source, params)
	if err != nil {
		return nil, err
	}
	return stdout, json.Unmarshal(stdout, out)
}
