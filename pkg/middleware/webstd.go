package middleware

// WebResponse is a Web-standard-shaped response: a middleware returning a
// non-nil *WebResponse short-circuits the chain; returning nil continues.
type WebResponse struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

// WebFunc is the request-only middleware shape the prod handler uses, the
// fetch-style equivalent of Func: (request) -> Response | nil | error.
type WebFunc func(req *Request) (*WebResponse, error)

// RunWeb executes chain in order; the first non-nil response (or error)
// short-circuits, exactly like Handled/Failed in the callback-style runner.
func RunWeb(chain []WebFunc, req *Request) (*WebResponse, error) {
	for _, mw := range chain {
		resp, err := mw(req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}
