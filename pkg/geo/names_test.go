package geo

import (
	"testing"

	"pgregory.net/rapid"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Europe", "Europe"},
		{"New%20York", "New York"},
		{"S%C3%A3o%20Paulo", "São Paulo"},
		{"New%2520York", "New York"},
		{"100%", "100%"},
		{"bad%zz%20name", "bad%zz name"},
		{"a+b", "a+b"},
		{"caf%C3", "caf%C3"},
		{"caf%C3%20au%20lait", "caf%C3 au lait"},
		{"%E2%82", "%E2%82"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ValidateName(tt.in); got != tt.want {
			t.Fatalf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateNameIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[A-Za-z0-9 %+]{0,24}`).Draw(t, "s")
		once := ValidateName(s)
		if twice := ValidateName(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

func TestValidateNameIdempotentArbitrary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		once := ValidateName(s)
		if twice := ValidateName(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

func TestFindInArray(t *testing.T) {
	list := []Node{
		{Level: Cities, Record: Record{ID: 1, Name: "Paris"}},
		{Level: Cities, Record: Record{ID: 2, Name: "New York"}},
		{Level: Cities, Record: Record{ID: 3, Name: "New York"}},
	}
	got, ok := FindInArray(list, "New%20York")
	if !ok || got.Record.ID != 2 {
		t.Fatalf("expected first New York (id 2), got %+v ok=%v", got, ok)
	}
	if _, ok := FindInArray(list, "Berlin"); ok {
		t.Fatalf("expected no match for Berlin")
	}
	if _, ok := FindInArray(nil, "Paris"); ok {
		t.Fatalf("expected no match in empty list")
	}
}

func TestFindInArrayProperty(t *testing.T) {
	names := []string{"Lyon", "Nice", "Le Mans", "Le%20Mans", "Metz"}
	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom(names), 0, 8).Draw(t, "names")
		value := rapid.SampledFrom(names).Draw(t, "value")
		list := make([]Node, len(picked))
		for i, n := range picked {
			list[i] = Node{Level: Cities, Record: Record{ID: int64(i + 1), Name: n}}
		}
		want := -1
		for i, n := range list {
			if n.Record.Name == ValidateName(value) {
				want = i
				break
			}
		}
		got, ok := FindInArray(list, value)
		if want == -1 {
			if ok {
				t.Fatalf("expected no match for %q in %v, got %+v", value, picked, got)
			}
			return
		}
		if !ok || got.Record.ID != list[want].Record.ID {
			t.Fatalf("expected element %d for %q in %v, got %+v ok=%v", want, value, picked, got, ok)
		}
	})
}

func sampleTree() []Node {
	roots := RegionsList()
	europe := &roots[3]
	europe.Loaded = true
	europe.Children = []Node{
		{
			Level:  Countries,
			Record: Record{ID: 75, Name: "France", ISO2: "FR"},
			Loaded: true,
			Children: []Node{
				{
					Level:  States,
					Record: Record{ID: 4796, Name: "Île-de-France", StateCode: "IDF", CountryCode: "FR"},
					Loaded: true,
					Children: []Node{
						{Level: Cities, Record: Record{ID: 44856, Name: "Paris", StateCode: "IDF", CountryCode: "FR"}},
					},
				},
			},
		},
		{Level: Countries, Record: Record{ID: 82, Name: "Germany", ISO2: "DE"}},
	}
	asia := &roots[2]
	asia.Loaded = true
	asia.Children = []Node{
		{Level: Countries, Record: Record{ID: 109, Name: "Japan", ISO2: "JP"}},
	}
	return roots
}

func TestFilterArr(t *testing.T) {
	roots := sampleTree()

	tests := []struct {
		value string
		want  []string
	}{
		{"Paris", []string{"Europe"}},
		{"IDF", []string{"Europe"}},
		{"Japan", []string{"Asia"}},
		{"Europe", []string{"Europe"}},
		{"%C3%8Ele-de-France", []string{"Europe"}},
		{"44856", []string{"Europe"}},
		{"Atlantis", nil},
	}
	for _, tt := range tests {
		got := FilterArr(roots, tt.value)
		if len(got) != len(tt.want) {
			t.Fatalf("FilterArr(%q) returned %d entries, want %d", tt.value, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].Record.Name != tt.want[i] {
				t.Fatalf("FilterArr(%q)[%d] = %s, want %s", tt.value, i, got[i].Record.Name, tt.want[i])
			}
		}
	}
}

func TestFilterArrMatchesEveryContainingRoot(t *testing.T) {
	roots := sampleTree()
	// "FR" appears under Europe only; add a second region carrying it.
	roots[0].Loaded = true
	roots[0].Children = []Node{{Level: Countries, Record: Record{ID: 999, Name: "Franceville", ISO2: "FR"}}}

	got := FilterArr(roots, "FR")
	if len(got) != 2 || got[0].Record.Name != "Africa" || got[1].Record.Name != "Europe" {
		t.Fatalf("expected Africa and Europe, got %+v", got)
	}
}
