package model

import (
	"database/sql/driver"
	"fmt"
)

// Layer is a data-quality tier. The set is closed and strictly ordered:
// Bronze < Silver < Gold. Promotion only ever moves forward.
type Layer int

const (
	// Bronze is the raw, as-captured tier every Record starts at.
	Bronze Layer = iota
	// Silver is the cleaned/validated tier.
	Silver
	// Gold is the fully enriched tier.
	Gold
)

// String renders the layer name.
func (l Layer) String() string {
	switch l {
	case Bronze:
		return "bronze"
	case Silver:
		return "silver"
	case Gold:
		return "gold"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Valid reports whether l is one of the three defined layers.
func (l Layer) Valid() bool {
	return l == Bronze || l == Silver || l == Gold
}

// ParseLayer converts a layer name back into a Layer.
func ParseLayer(s string) (Layer, error) {
	switch s {
	case "bronze":
		return Bronze, nil
	case "silver":
		return Silver, nil
	case "gold":
		return Gold, nil
	default:
		return Bronze, fmt.Errorf("model: unknown layer %q", s)
	}
}

// MarshalJSON renders the layer as its lowercase name.
func (l Layer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON parses a layer from its lowercase name.
func (l *Layer) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("model: invalid layer JSON %s", data)
	}
	parsed, err := ParseLayer(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Value implements driver.Valuer so a Layer can be written as a plain
// SMALLINT column by database/sql-compatible drivers (pgx included).
func (l Layer) Value() (driver.Value, error) {
	return int64(l), nil
}

// Scan implements sql.Scanner, the inverse of Value.
func (l *Layer) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*l = Layer(v)
	case int32:
		*l = Layer(v)
	case int:
		*l = Layer(v)
	default:
		return fmt.Errorf("model: cannot scan %T into Layer", src)
	}
	return nil
}
