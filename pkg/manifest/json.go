package manifest

import "encoding/json"

// wireRoute mirrors the persisted JSON shape from spec.md §6: an array of
// objects with keys path, filename, jsx, assets.css, assets.js, generated.
type wireRoute struct {
	Path      string `json:"path,omitempty"`
	Filename  string `json:"filename"`
	Source    string `json:"jsx"`
	Assets    *wireAssets `json:"assets,omitempty"`
	Generated bool   `json:"generated,omitempty"`
}

type wireAssets struct {
	CSS []string `json:"css,omitempty"`
	JS  []string `json:"js,omitempty"`
}

// MarshalJSON persists the manifest as the ordered array the bundler/servers
// share on disk.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make([]wireRoute, len(m.Routes))
	for i, r := range m.Routes {
		wr := wireRoute{
			Path:      r.Path,
			Filename:  r.Filename,
			Source:    r.Source,
			Generated: r.Generated,
		}
		if len(r.Assets.CSS) > 0 || len(r.Assets.JS) > 0 {
			wr.Assets = &wireAssets{CSS: r.Assets.CSS, JS: r.Assets.JS}
		}
		out[i] = wr
	}
	return json.Marshal(out)
}

// UnmarshalJSON loads a manifest from its persisted array form, then derives
// Segments for every route so the matcher and generator can reason about it.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var in []wireRoute
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	routes := make([]RouteDescriptor, len(in))
	for i, wr := range in {
		d := RouteDescriptor{
			Path:      wr.Path,
			Filename:  wr.Filename,
			Source:    wr.Source,
			Generated: wr.Generated,
		}
		if wr.Assets != nil {
			d.Assets = Assets{CSS: wr.Assets.CSS, JS: wr.Assets.JS}
		}
		d.Segments = parseSegments(d.Path)
		routes[i] = d
	}
	m.Routes = routes
	return nil
}
