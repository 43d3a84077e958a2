package geo

import (
	"fmt"
	"strings"
)

// Level is the depth tag of a tree node.
type Level int

const (
	Regions Level = iota
	Countries
	States
	Cities
)

var levelNames = [...]string{"Regions", "Countries", "States", "Cities"}

func (l Level) String() string {
	if l < Regions || l > Cities {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool { return l >= Regions && l <= Cities }

// Next returns the level below l. Cities has no next level.
func (l Level) Next() (Level, bool) {
	if !l.Valid() || l == Cities {
		return l, false
	}
	return l + 1, true
}

// Param returns the query parameter name bound to the level.
func (l Level) Param() string {
	switch l {
	case Regions:
		return "region"
	case Countries:
		return "country"
	case States:
		return "state"
	case Cities:
		return "city"
	}
	return ""
}

// ParseLevel accepts the level name or its query parameter name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l := Regions; l <= Cities; l++ {
		if s == strings.ToLower(levelNames[l]) || s == l.Param() {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level: %q", s)
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
