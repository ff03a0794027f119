// Package targets decodes the YAML file listing the feeds to poll.
//
//	api_key: shared-key            # optional, used by targets without one
//	targets:
//	  - name: office
//	    feed: 504
//	  - feed: 504
//	    datastream: temperature
//	    api_key: other-key
package targets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	yaml "github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/jacoelho/feedpoll/internal/feed"
)

// ErrTargets is the sentinel error for all targets file failures.
var ErrTargets = errors.New("targets error")

// File is the decoded targets file.
type File struct {
	APIKey  string  `yaml:"api_key,omitempty"`
	Targets []Entry `yaml:"targets"`
}

// Entry is one target as written in the file.
type Entry struct {
	Name       string `yaml:"name,omitempty"`
	Feed       ID     `yaml:"feed"`
	Datastream ID     `yaml:"datastream,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// ID accepts feed and datastream identifiers written either as strings or
// as bare integers.
type ID string

// UnmarshalYAML decodes a scalar identifier.
func (id *ID) UnmarshalYAML(node ast.Node) error {
	switch n := node.(type) {
	case *ast.StringNode:
		*id = ID(n.Value)
	case *ast.IntegerNode:
		switch v := n.Value.(type) {
		case int64:
			*id = ID(strconv.FormatInt(v, 10))
		case uint64:
			*id = ID(strconv.FormatUint(v, 10))
		default:
			return fmt.Errorf("unexpected integer node value type: %T", n.Value)
		}
	case *ast.NullNode:
		*id = ""
	default:
		return fmt.Errorf("identifier must be a string or integer, got %s", node.Type())
	}
	return nil
}

// Parse decodes a targets file. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	decoder := yaml.NewDecoder(r, yaml.DisallowUnknownField())

	var f File
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: failed to decode YAML: %v", ErrTargets, err)
	}

	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets defined", ErrTargets)
	}

	for i, e := range f.Targets {
		if e.Feed == "" {
			return nil, fmt.Errorf("%w: target %d: missing required 'feed' field", ErrTargets, i)
		}
	}

	return &f, nil
}

// Load opens and parses the targets file at path.
func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file %s: %w", path, err)
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Resolve converts the entries into targets. Keys fall back to the file's
// api_key, then to defaultKey.
func (f *File) Resolve(defaultKey string) []feed.Target {
	fallback := f.APIKey
	if fallback == "" {
		fallback = defaultKey
	}

	out := make([]feed.Target, 0, len(f.Targets))
	for _, e := range f.Targets {
		key := e.APIKey
		if key == "" {
			key = fallback
		}
		out = append(out, feed.Target{
			Name:         e.Name,
			FeedID:       string(e.Feed),
			DatastreamID: string(e.Datastream),
			APIKey:       key,
		})
	}
	return out
}
