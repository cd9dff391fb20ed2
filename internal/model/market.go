package model

import (
	"fmt"
	"time"
)

// PriceBar represents a single daily or weekly session.
type PriceBar struct {
	Time   time.Time `json:"time" msgpack:"t"`
	Open   float64   `json:"open" msgpack:"o"`
	High   float64   `json:"high" msgpack:"h"`
	Low    float64   `json:"low" msgpack:"l"`
	Close  float64   `json:"close" msgpack:"c"`
	Volume float64   `json:"volume" msgpack:"v"`
}

// ValidateBars checks that bars are strictly ascending with no duplicate sessions.
func ValidateBars(bars []PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d (%s) is not after bar %d (%s)", ErrInsufficientData,
				i, bars[i].Time.Format(DateLayout), i-1, bars[i-1].Time.Format(DateLayout))
		}
	}
	return nil
}
