package bookmarkfile

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/adrianmross/geo-tree/pkg/query"
)

// Entry is one [section] of a bookmark file.
type Entry struct {
	Name   string
	Params query.Params
	Notes  string
}

// Load parses an INI-style bookmark file:
//
//	[paris]
//	region=Europe
//	country=France
//	state=Île-de-France
//	city=Paris
//	notes=weekend trip
//
// Entries come back sorted by name. Every section needs a region.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]Entry)
	var current string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if _, exists := entries[current]; !exists {
				entries[current] = Entry{Name: current}
			}
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 || current == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		e := entries[current]
		switch key {
		case "region":
			e.Params.Region = val
		case "country":
			e.Params.Country = val
		case "state":
			e.Params.State = val
		case "city":
			e.Params.City = val
		case "notes":
			e.Notes = val
		}
		entries[current] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Params.Region == "" {
			return nil, fmt.Errorf("bookmark %s missing region", e.Name)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
