// pkg/mapping/rows.go
package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// CoreFields is the canonical field set every normalized row carries.
var CoreFields = []string{
	"id", "name", "taxonomy",
	"streetAddress", "addressLocality", "postalCode", "addressCountry",
	"latitude", "longitude", "images", "owner", "source",
}

// RawAliases maps field names commonly seen in the wild straight onto
// canonical names, applied before any learned mapping.
var RawAliases = map[string]string{
	"lat":        "latitude",
	"long":       "longitude",
	"lon":        "longitude",
	"lng":        "longitude",
	"title":      "name",
	"nom":        "name",
	"categories": "taxonomy",
	"address":    "streetAddress",
}

// IsCoreField reports whether the name is one of the canonical fields.
func IsCoreField(name string) bool {
	for _, f := range CoreFields {
		if f == name {
			return true
		}
	}
	return false
}

// FieldString renders a row value as a string. Nil becomes the empty string,
// numbers print without exponent noise, everything else goes through the
// default formatter.
func FieldString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// SplitLabels turns a raw category field value into individual labels.
// Strings are split on commas, native lists are stringified item by item.
func SplitLabels(v any) []string {
	switch value := v.(type) {
	case nil:
		return nil
	case string:
		if value == "" {
			return nil
		}
		return strings.Split(value, ",")
	case []string:
		return append([]string(nil), value...)
	case []any:
		labels := make([]string, 0, len(value))
		for _, item := range value {
			labels = append(labels, FieldString(item))
		}
		return labels
	default:
		return []string{FieldString(value)}
	}
}
