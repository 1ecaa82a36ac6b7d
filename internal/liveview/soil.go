package liveview

import (
	"strconv"
	"strings"
)

// Nutrients holds the channels of a composite soil-nutrient reading.
type Nutrients struct {
	Nito    int `json:"nito"`
	Kali    int `json:"kali"`
	Phospho int `json:"phospho"`
}

// ParseSoilNutrients decodes the firmware's compact soil reading format,
// a comma-separated list of <letter><integer> tokens such as "N14,K15,P9".
//
// Unrecognized tokens are skipped. Malformed input yields zero values; the
// live view renders zeros rather than failing on a garbled reading.
func ParseSoilNutrients(raw string) Nutrients {
	var n Nutrients
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 {
			continue
		}
		v, err := strconv.Atoi(tok[1:])
		if err != nil {
			continue
		}
		switch tok[0] {
		case 'N':
			n.Nito = v
		case 'K':
			n.Kali = v
		case 'P':
			n.Phospho = v
		}
	}
	return n
}
