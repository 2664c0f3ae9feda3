// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cell is a single spreadsheet value: either text or a number.
//
// Numbers keep their literal text, so a key that happens to look numeric
// compares equal to the same key read back as text, and large integers don't
// lose precision. The zero Cell is empty text.
type Cell struct {
	s   string
	num bool
}

// Text returns a text Cell.
func Text(s string) Cell { return Cell{s: s} }

// Num returns a numeric Cell holding f.
func Num(f float64) Cell {
	return Cell{s: strconv.FormatFloat(f, 'f', -1, 64), num: true}
}

// Int returns a numeric Cell holding i.
func Int(i int64) Cell { return Cell{s: strconv.FormatInt(i, 10), num: true} }

// Number returns a numeric Cell from a JSON number literal.
func Number(n json.Number) Cell { return Cell{s: n.String(), num: true} }

// Round returns a numeric Cell holding f rounded to the given number of
// decimal places.
func Round(f float64, places int) Cell {
	p := math.Pow(10, float64(places))
	return Num(math.Round(f*p) / p)
}

// FromValue converts a decoded JSON value into a Cell. Numbers must be decoded
// as [json.Number] to keep their literal text.
func FromValue(v any) Cell {
	switch v := v.(type) {
	case nil:
		return Cell{}
	case json.Number:
		return Number(v)
	case float64:
		return Num(v)
	case int:
		return Int(int64(v))
	case int64:
		return Int(v)
	case string:
		return Text(v)
	case bool:
		return Text(strings.ToUpper(strconv.FormatBool(v)))
	default:
		return Text(fmt.Sprint(v))
	}
}

// String returns the literal text of c.
func (c Cell) String() string { return c.s }

// IsNum reports whether c holds a number.
func (c Cell) IsNum() bool { return c.num }

// IsEmpty reports whether c is empty text.
func (c Cell) IsEmpty() bool { return !c.num && c.s == "" }

// Float returns c as a number. Text is parsed leniently; anything that isn't a
// finite number, including empty text, is 0.
func (c Cell) Float() float64 {
	s := strings.TrimSpace(c.s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Value returns c as a value suitable for JSON encoding.
func (c Cell) Value() any {
	if c.num {
		f, err := strconv.ParseFloat(c.s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return json.Number("0")
		}
		return json.Number(c.s)
	}
	return c.s
}

// finite reports whether a numeric cell holds a finite number.
func (c Cell) finite() bool {
	f, err := strconv.ParseFloat(c.s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements [json.Marshaler].
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// UnmarshalJSON implements [json.Unmarshaler].
func (c *Cell) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*c = FromValue(v)
	return nil
}

// Equal reports whether c and o hold the same value of the same kind.
func (c Cell) Equal(o Cell) bool { return c == o }
