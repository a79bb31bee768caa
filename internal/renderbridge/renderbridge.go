// Package renderbridge adapts an external JSX render command (the bundler's
// companion process) into a loader.Resolver, the same subprocess-per-call
// pattern the dev server's bundler supervisor uses for builds.
package renderbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/sxo-dev/sxo/pkg/head"
	"github.com/sxo-dev/sxo/pkg/loader"
)

// Bridge shells out to command for every render, passing the source path as
// its sole argument and the JSON object {"source": ..., "params": {...}} on
// stdin. The process must print a single JSON object to stdout: {"html":
// "...", "head": <any>}.
type Bridge struct {
	command []string
	dir     string
	timeout time.Duration
}

// New returns a Bridge. An empty command makes every Resolve call fail,
// which is intentional: a project without a configured render command has
// no pages to serve.
func New(command []string, dir string) *Bridge {
	return &Bridge{command: command, dir: dir, timeout: 10 * time.Second}
}

// Resolver adapts the bridge to loader.Resolver; the returned Module's
// Render re-invokes the subprocess once per call with the request's params.
func (b *Bridge) Resolver() loader.Resolver {
	return func(source string) (loader.Module, error) {
		if len(b.command) == 0 {
			return loader.Module{}, fmt.Errorf("renderbridge: no render command configured")
		}
		return loader.Module{
			Render: func(ctx context.Context, params map[string]string) (string, error) {
				out, err := b.invoke(ctx, source, params)
				if err != nil {
					return "", err
				}
				return out.HTML, nil
			},
			Head: head.HeadFunc(func(params head.Params) (head.Spec, error) {
				out, err := b.invoke(context.Background(), source, params)
				if err != nil {
					return nil, err
				}
				m, ok := out.Head.(map[string]any)
				if !ok {
					return nil, nil
				}
				return head.MapSpec(m), nil
			}),
		}, nil
	}
}

type payload struct {
	HTML string `json:"html"`
	Head any    `json:"head"`
}

func (b *Bridge) invoke(ctx context.Context, source string, params map[string]string) (payload, error) {
	stdout, err := b.run(ctx, source, params)
	if err != nil {
		return payload{}, err
	}
	var out payload
	if err := json.Unmarshal(stdout, &out); err != nil {
		return payload{}, fmt.Errorf("renderbridge: failed to decode render output for %s: %w", source, err)
	}
	return out, nil
}

// run encodes {source, params} to stdin, executes the configured command,
// and returns its raw stdout.
func (b *Bridge) run(ctx context.Context, source string, params map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	input, err := json.Marshal(struct {
		Source string            `json:"source"`
		Params map[string]string `json:"params"`
	}{Source: source, Params: params})
	if err != nil {
		return nil, fmt.Errorf("renderbridge: failed to encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.command[0], append(append([]string{}, b.command[1:]...), source)...)
	cmd.Dir = b.dir
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("renderbridge: %s: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
