// Package targets resolves the set of scan destinations for a cycle from a
// file, a static list, or a cloud provider inventory. Every resolver returns
// a deduplicated, sorted set of non-empty target strings.
package targets

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/netsweep/netsweep/internal/errors"
)

// Resolver produces the target set for one scan cycle.
type Resolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// Normalize trims, drops empties, deduplicates, and sorts a raw target list.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	targets := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		targets = append(targets, token)
	}
	sort.Strings(targets)
	return targets
}

// FileResolver reads targets from a text file, one per line.
type FileResolver struct {
	Path string
}

// NewFileResolver creates a resolver reading the given file each cycle.
func NewFileResolver(path string) *FileResolver {
	return &FileResolver{Path: path}
}

// Resolve reads and normalizes the target file.
func (r *FileResolver) Resolve(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		code := errors.CodeResolveFailed
		if os.IsNotExist(err) {
			code = errors.CodeFileNotFound
		}
		return nil, errors.WrapResolveError(code, "failed to read target file", "file", err)
	}
	return Normalize(strings.Split(string(data), "\n")), nil
}

// StaticResolver returns a fixed target list from configuration.
type StaticResolver struct {
	Targets []string
}

// NewStaticResolver creates a resolver over a fixed list.
func NewStaticResolver(targets []string) *StaticResolver {
	return &StaticResolver{Targets: targets}
}

// Resolve normalizes the configured list.
func (r *StaticResolver) Resolve(_ context.Context) ([]string, error) {
	return Normalize(r.Targets), nil
}
