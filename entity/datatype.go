package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/c360/semlink/vocabulary"
)

// checkLiteral verifies v against the field's datatype. Untyped fields accept anything.
// List fields check every element.
func checkLiteral(f Field, v any) error {
	if v == nil || f.Datatype == "" {
		return nil
	}
	if items, ok := v.([]any); ok {
		for i, item := range items {
			if err := checkDatatype(f.Datatype, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	}
	if items, ok := v.([]string); ok {
		for i, item := range items {
			if err := checkDatatype(f.Datatype, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	}
	return checkDatatype(f.Datatype, v)
}

func checkDatatype(datatype string, v any) error {
	ok := true
	switch datatype {
	case vocabulary.XsdString, vocabulary.RdfLangString:
		_, ok = v.(string)
		if !ok {
			ok = isLanguageValue(v)
		}
	case vocabulary.XsdBoolean:
		_, ok = v.(bool)
	case vocabulary.XsdInteger:
		ok = isInteger(v)
	case vocabulary.XsdDecimal, vocabulary.XsdDouble:
		ok = isNumber(v)
	case vocabulary.XsdDate:
		ok = isTime(v, time.DateOnly)
	case vocabulary.XsdDateTime:
		ok = isTime(v, time.RFC3339)
	}
	if !ok {
		return fmt.Errorf("%w: %T is not %s", ErrFieldType, v, datatype)
	}
	return nil
}

// isLanguageValue accepts {"@value": "...", "@language": "..."} style maps.
func isLanguageValue(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[vocabulary.KeywordValue].(string)
	return ok
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == math.Trunc(n)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return false
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

func isTime(v any, layout string) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case string:
		_, err := time.Parse(layout, t)
		return err == nil
	}
	return false
}
