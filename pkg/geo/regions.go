package geo

// Region mirrors the data source's Region enum.
type Region string

const (
	Africa   Region = "Africa"
	Americas Region = "Americas"
	Asia     Region = "Asia"
	Europe   Region = "Europe"
	Oceania  Region = "Oceania"
	Polar    Region = "Polar"
)

// AllRegions is the enumeration in schema order.
var AllRegions = []Region{Africa, Americas, Asia, Europe, Oceania, Polar}

// RegionsList builds the top-level nodes, one per region, in enumeration
// order. Ids start at 1 so every region has a non-zero id.
func RegionsList() []Node {
	out := make([]Node, len(AllRegions))
	for i, r := range AllRegions {
		out[i] = Node{
			Level:  Regions,
			Record: Record{ID: int64(i + 1), Name: string(r)},
		}
	}
	return out
}

// IsRegion reports whether name (after normalization) is a known region.
func IsRegion(name string) bool {
	name = ValidateName(name)
	for _, r := range AllRegions {
		if string(r) == name {
			return true
		}
	}
	return false
}
