package airecommend

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// text accepts a JSON string or number. Models emit "4.5" and 4.5 interchangeably.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	*t = text(n.String())
	return nil
}

type wireDish struct {
	Name        text `json:"name"`
	Description text `json:"description"`
	Rating      text `json:"rating"`
}

type wireRestaurant struct {
	Name    text `json:"name"`
	Address text `json:"address"`
	Lat     text `json:"lat"`
	Lng     text `json:"lng"`
	Website text `json:"website"`
}

// wireRecommendation is the shape requested from the model.
type wireRecommendation struct {
	Dish       wireDish       `json:"dish"`
	Restaurant wireRestaurant `json:"restaurant"`
}

func (w wireRecommendation) valid() bool {
	return w.Dish.Name != "" && w.Restaurant.Name != "" && w.Dish.Rating != ""
}
