package overpass

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidBBox indica un bbox mal formado o fuera de rango.
var ErrInvalidBBox = errors.New("overpass: invalid bbox")

// BBox es el rectángulo en orden Overpass: south, west, north, east.
type BBox struct {
	South, West, North, East float64
}

// ParseBBox construye un BBox desde [s, w, n, e] y lo valida.
func ParseBBox(v []float64) (BBox, error) {
	if len(v) != 4 {
		return BBox{}, fmt.Errorf("%w: expected 4 numbers, got %d", ErrInvalidBBox, len(v))
	}
	b := BBox{South: v[0], West: v[1], North: v[2], East: v[3]}
	return b, b.Validate()
}

// Validate exige lat en [-90,90], lon en [-180,180], south<north y west<east.
func (b BBox) Validate() error {
	switch {
	case b.South < -90 || b.South > 90 || b.North < -90 || b.North > 90:
		return fmt.Errorf("%w: latitude out of range", ErrInvalidBBox)
	case b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180:
		return fmt.Errorf("%w: longitude out of range", ErrInvalidBBox)
	case b.South >= b.North:
		return fmt.Errorf("%w: south must be lower than north", ErrInvalidBBox)
	case b.West >= b.East:
		return fmt.Errorf("%w: west must be lower than east", ErrInvalidBBox)
	}
	return nil
}

// String devuelve el filtro "(s,w,n,e)" de Overpass QL. Siempre en notación
// decimal: Overpass no acepta exponentes.
func (b BBox) String() string {
	return "(" + coord(b.South) + "," + coord(b.West) + "," + coord(b.North) + "," + coord(b.East) + ")"
}

func coord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
