package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a single import path, which becomes the
// "main" entry, or a mapping of entry name to import path. Mapping order is
// kept.
func (e *Entries) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*e = Entries{{Name: "main", Import: value.Value}}
		return nil
	case yaml.MappingNode:
		entries := make(Entries, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			name, imp := value.Content[i], value.Content[i+1]
			if imp.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: entry %q must be a path", imp.Line, name.Value)
			}
			entries = append(entries, Entry{Name: name.Value, Import: imp.Value})
		}
		*e = entries
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a path or a mapping", value.Line)
	}
}

// MarshalYAML writes entries as an ordered mapping.
func (e Entries) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, entry := range e {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: entry.Import},
		)
	}
	return node, nil
}

// PluginList is an ordered list of named plugins.
type PluginList []PluginSpec

// Names returns the plugin names in order.
func (p PluginList) Names() []string {
	names := make([]string, 0, len(p))
	for _, spec := range p {
		names = append(names, spec.Name)
	}
	return names
}

// UnmarshalYAML accepts a mapping of plugin name to options, where the
// mapping order is the plugin order, or a sequence whose items are either a
// plugin name or a {name, options} mapping.
func (p *PluginList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		list := make(PluginList, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			spec := PluginSpec{Name: value.Content[i].Value}
			if err := value.Content[i+1].Decode(&spec.Options); err != nil {
				return fmt.Errorf("line %d: plugin %q options: %w", value.Content[i+1].Line, spec.Name, err)
			}
			list = append(list, spec)
		}
		*p = list
		return nil
	case yaml.SequenceNode:
		list := make(PluginList, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind == yaml.ScalarNode {
				list = append(list, PluginSpec{Name: item.Value})
				continue
			}
			var spec PluginSpec
			if err := item.Decode(&spec); err != nil {
				return fmt.Errorf("line %d: plugin: %w", item.Line, err)
			}
			list = append(list, spec)
		}
		*p = list
		return nil
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*p = nil
			return nil
		}
	}
	return fmt.Errorf("line %d: plugins must be a mapping or a sequence", value.Line)
}

// MarshalYAML writes a sequence of {name, options} items; an empty list is
// written as [] rather than omitted.
func (p PluginList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	if len(p) == 0 {
		return node, nil
	}
	node.Style = 0
	for _, spec := range p {
		item := &yaml.Node{}
		if err := item.Encode(spec); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, item)
	}
	return node, nil
}
