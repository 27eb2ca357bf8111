// Package config loads YAML configuration documents and the database settings
// the driver registrations read from them.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/gormsession/dberr"
)

// Configuration is a parsed YAML document addressed by section names.
// Nested sections are addressed with dots, e.g. "services.database".
type Configuration struct {
	root *yaml.Node
}

// Empty returns a configuration without any sections. Settings can still be
// supplied through environment variables.
func Empty() *Configuration {
	return &Configuration{}
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a Configuration from raw YAML.
func Parse(data []byte) (*Configuration, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, dberr.Wrap(dberr.CodeInvalidConfiguration, "config.parse", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Empty(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, dberr.InvalidConfiguration("config.parse", "top-level YAML value must be a mapping")
	}
	return &Configuration{root: root}, nil
}

// Section returns the node for name, if present.
func (c *Configuration) Section(name string) (*yaml.Node, bool) {
	if c == nil || c.root == nil {
		return nil, false
	}
	node := c.root
	for _, part := range strings.Split(name, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		next := lookup(node, part)
		if next == nil {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Decode decodes section name into out. It reports false without touching out
// when the section does not exist. Keys match struct fields ignoring case,
// underscores and dashes, so ConnectionString, connectionString and
// connection_string all fill the same field.
func (c *Configuration) Decode(name string, out interface{}) (bool, error) {
	node, ok := c.Section(name)
	if !ok {
		return false, nil
	}
	if err := canonicalize(node, reflect.TypeOf(out)).Decode(out); err != nil {
		return true, dberr.Wrap(dberr.CodeInvalidConfiguration, "config.decode "+name, err)
	}
	return true, nil
}

// lookup finds key in a mapping node, ignoring case like most config loaders do.
func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if strings.EqualFold(node.Content[i].Value, key) {
			return node.Content[i+1]
		}
	}
	return nil
}

type fieldKey struct {
	name string
	typ  reflect.Type
}

// canonicalize returns a copy of node whose mapping keys are renamed to the
// yaml names of t's fields they match loosely.
func canonicalize(node *yaml.Node, t reflect.Type) *yaml.Node {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if node == nil || node.Kind != yaml.MappingNode || t == nil || t.Kind() != reflect.Struct {
		return node
	}
	fields := make(map[string]fieldKey, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		fields[foldKey(name)] = fieldKey{name: name, typ: f.Type}
	}

	out := *node
	out.Content = append([]*yaml.Node(nil), node.Content...)
	for i := 0; i+1 < len(out.Content); i += 2 {
		f, ok := fields[foldKey(out.Content[i].Value)]
		if !ok {
			continue
		}
		key := *out.Content[i]
		key.Value = f.name
		out.Content[i] = &key
		out.Content[i+1] = canonicalize(out.Content[i+1], f.typ)
	}
	return &out
}

func foldKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}
