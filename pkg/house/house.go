// Package house persists the temperature of each room in a single JSON
// document and serializes every read-modify-write against it.
package house

import (
	"strconv"
	"strings"
)

// Room is one named room and its current temperature in degrees.
type Room struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
}

// House is the ordered set of rooms.
type House struct {
	Rooms []Room `json:"rooms"`
}

// Document is the entire persisted unit.
type Document struct {
	House House `json:"house"`
}

// Change reports the outcome of a temperature update.
type Change struct {
	Room     Room
	Previous float64
}

// Names returns every room name in document order.
func (d Document) Names() []string {
	names := make([]string, len(d.House.Rooms))
	for i, r := range d.House.Rooms {
		names[i] = r.Name
	}
	return names
}

// index returns the position of the room matching name case-insensitively,
// or -1.
func (d Document) index(name string) int {
	for i, r := range d.House.Rooms {
		if strings.EqualFold(r.Name, name) {
			return i
		}
	}
	return -1
}

// checkUnique returns the first name that appears twice under
// case-insensitive comparison.
func (d Document) checkUnique() (string, bool) {
	seen := make(map[string]struct{}, len(d.House.Rooms))
	for _, r := range d.House.Rooms {
		key := strings.ToLower(r.Name)
		if _, ok := seen[key]; ok {
			return r.Name, false
		}
		seen[key] = struct{}{}
	}
	return "", true
}

// FormatTemperature renders t without trailing zeros ("21", "19.5").
func FormatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
