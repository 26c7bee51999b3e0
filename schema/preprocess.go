package schema

import (
	"sort"
)

// Relation records that a property of one schema references entities of another.
type Relation struct {
	Schema   string
	Property string
	Range    string
	List     bool
}

// Preprocess prepares schemas for compilation. A property with "range" loses
// its raw type and format, since its values are identifiers rather than the
// declared scalar. An array whose items declare "range" has the items
// stripped the same way and the range lifted to the property itself. The
// reference relationships found are returned sorted by schema and property.
func Preprocess(schemas []*Schema) []Relation {
	var out []Relation
	for _, s := range schemas {
		for _, name := range sortedProperties(s) {
			p := s.Properties[name]
			if p == nil {
				continue
			}
			if p.Items != nil && p.Items.Range != "" {
				p.Items.Type = nil
				p.Items.Format = ""
				p.Range = p.Items.Range
			}
			if p.Range == "" {
				continue
			}
			list := p.IsArray()
			if !list {
				p.Type = nil
			}
			p.Format = ""
			out = append(out, Relation{
				Schema:   s.IRI(),
				Property: name,
				Range:    NormalizeRef(p.Range),
				List:     list,
			})
		}
	}
	return out
}

func sortedProperties(s *Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clone(schemas []*Schema) []*Schema {
	out := make([]*Schema, len(schemas))
	for i, s := range schemas {
		c := *s
		c.AllOf = append([]Ref(nil), s.AllOf...)
		c.Required = append([]string(nil), s.Required...)
		c.Properties = make(map[string]*Property, len(s.Properties))
		for name, p := range s.Properties {
			c.Properties[name] = cloneProperty(p)
		}
		out[i] = &c
	}
	return out
}

func cloneProperty(p *Property) *Property {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = cloneProperty(p.Items)
	c.Enum = append([]any(nil), p.Enum...)
	return &c
}
