package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
)

// requestEntry decodes one list entry: either a bare name or a single-key
// mapping from name to its annotation lines.
type requestEntry struct {
	req asset.Request
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *requestEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		name := strings.TrimSpace(node.Value)
		if name == "" || node.ShortTag() == "!!null" {
			return fmt.Errorf("line %d: empty asset name", node.Line)
		}
		if err := checkName(name); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		e.req = asset.NewRequest(name)
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: annotated entry must have exactly one name, got %d", node.Line, len(node.Content)/2)
		}
		keyNode, valNode := node.Content[0], node.Content[1]
		name := strings.TrimSpace(keyNode.Value)
		if keyNode.Kind != yaml.ScalarNode || name == "" {
			return fmt.Errorf("line %d: annotated entry needs a scalar name", keyNode.Line)
		}
		if err := checkName(name); err != nil {
			return fmt.Errorf("line %d: %w", keyNode.Line, err)
		}
		annotations, err := decodeAnnotations(valNode)
		if err != nil {
			return fmt.Errorf("line %d: %q: %w", keyNode.Line, name, err)
		}
		e.req = asset.NewAnnotatedRequest(name, annotations)
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a name or a name: [annotations] mapping", node.Line)
	}
}

// checkName rejects names that would escape the output or cache directory
// once used as a file name.
func checkName(name string) error {
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return fmt.Errorf("asset name %q must not contain path separators", name)
	}
	return nil
}

func decodeAnnotations(node *yaml.Node) ([]string, error) {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("annotations must be a list")
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: annotation must be a scalar", item.Line)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

type requestFile struct {
	Nodes  []requestEntry `yaml:"nodes"`
	Items  []requestEntry `yaml:"items"`
	Skills []requestEntry `yaml:"skills"`
}

// ParseRequests decodes the nodes/items/skills lists from a YAML document.
// Missing lists are empty; order and duplicates are preserved.
func ParseRequests(raw []byte) (asset.Requests, error) {
	var file requestFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return asset.Requests{}, fmt.Errorf("%w: requests: %v", ErrInvalid, err)
	}
	var reqs asset.Requests
	var err error
	if reqs.Nodes, err = unwrap("nodes", file.Nodes); err != nil {
		return asset.Requests{}, err
	}
	if reqs.Items, err = unwrap("items", file.Items); err != nil {
		return asset.Requests{}, err
	}
	if reqs.Skills, err = unwrap("skills", file.Skills); err != nil {
		return asset.Requests{}, err
	}
	return reqs, nil
}

// unwrap flattens decoded entries. yaml.v3 never hands null entries to
// UnmarshalYAML, so they surface here as empty names.
func unwrap(key string, entries []requestEntry) ([]asset.Request, error) {
	out := make([]asset.Request, 0, len(entries))
	for i, e := range entries {
		if e.req.Name == "" {
			return nil, fmt.Errorf("%w: %s[%d]: empty asset name", ErrInvalid, key, i)
		}
		out = append(out, e.req)
	}
	return out, nil
}
