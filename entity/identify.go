package entity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NameIdentifier returns a hook producing prefix followed by the string value
// of a literal field, e.g. NameIdentifier("ex:", "name") turns an entity named
// "Alice" into "ex:Alice".
func NameIdentifier(prefix, field string) IdentifyFunc {
	return func(e *Entity) (string, error) {
		v, ok := e.literal(field).(string)
		if !ok || v == "" {
			return "", fmt.Errorf("field %s has no string value", field)
		}
		return prefix + v, nil
	}
}

// HashIdentifier returns a hook producing prefix followed by a name-based
// (SHA-1) UUID over the type and the given literal fields. The same values
// always yield the same identifier.
func HashIdentifier(prefix string, fields ...string) IdentifyFunc {
	return func(e *Entity) (string, error) {
		var b strings.Builder
		b.WriteString(e.typ.IRI)
		b.WriteString("|")
		b.WriteString(e.typ.Name)
		for _, field := range fields {
			v := e.literal(field)
			if v == nil {
				return "", fmt.Errorf("field %s is unset", field)
			}
			fmt.Fprintf(&b, "|%s=%v", field, v)
		}
		return prefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String(), nil
	}
}

func (e *Entity) literal(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.literals[name]
}
