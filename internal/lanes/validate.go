// Package lanes valida los tags de carriles (lanes, turn:lanes). Sin I/O.
package lanes

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	KeyLanes     = "lanes"
	KeyTurnLanes = "turn:lanes"

	// MaxReasonableLanes es el umbral a partir del cual se emite un warning.
	MaxReasonableLanes = 12
)

// turnVocabulary son las direcciones conocidas de turn:lanes.
var turnVocabulary = map[string]struct{}{
	"left":           {},
	"through":        {},
	"right":          {},
	"reverse":        {},
	"slight_left":    {},
	"slight_right":   {},
	"sharp_left":     {},
	"sharp_right":    {},
	"merge_to_left":  {},
	"merge_to_right": {},
	"none":           {},
}

// Report es el resultado de Validate. Errors y Warnings nunca son nil.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// IsKnownTurn reporta si token pertenece al vocabulario.
func IsKnownTurn(token string) bool {
	_, ok := turnVocabulary[token]
	return ok
}

// Validate revisa lanes y turn:lanes.
//   - lanes debe ser entero positivo; > 12 es warning.
//   - turn:lanes: la cantidad de segmentos "|" debe igualar lanes.
//   - tokens ";" fuera del vocabulario son warning.
func Validate(tags map[string]string) Report {
	rep := Report{Errors: []string{}, Warnings: []string{}}

	// presente = no vacío; el valor se recorta sólo para parsear
	lanesRaw := tags[KeyLanes]
	lanesN, lanesErr := strconv.Atoi(strings.TrimSpace(lanesRaw))
	lanesOK := lanesRaw != "" && lanesErr == nil

	if lanesRaw != "" {
		switch {
		case lanesErr != nil:
			rep.Errors = append(rep.Errors, fmt.Sprintf("lanes must be a number, got %q", lanesRaw))
		case lanesN <= 0:
			rep.Errors = append(rep.Errors, fmt.Sprintf("lanes must be a positive integer, got %d", lanesN))
		case lanesN > MaxReasonableLanes:
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("unusually high lane count (%d > %d)", lanesN, MaxReasonableLanes))
		}
	}

	turnRaw := tags[KeyTurnLanes]
	if turnRaw != "" {
		segments := strings.Split(turnRaw, "|")
		if lanesOK && len(segments) != lanesN {
			rep.Errors = append(rep.Errors, fmt.Sprintf("turn:lanes has %d segments but lanes is %d", len(segments), lanesN))
		}
		for _, seg := range segments {
			for _, tok := range strings.Split(seg, ";") {
				if tok == "" {
					continue
				}
				if !IsKnownTurn(tok) {
					rep.Warnings = append(rep.Warnings, fmt.Sprintf("unknown turn direction: %s", tok))
				}
			}
		}
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}
