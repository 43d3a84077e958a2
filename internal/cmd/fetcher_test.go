package cmd

import (
	"context"
	"sync"

	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
)

// testFetcher serves Europe > France > Île-de-France > {Paris, Versailles}
// and Asia > Japan.
type testFetcher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *testFetcher) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *testFetcher) CountriesByRegion(_ context.Context, region string) ([]geo.Record, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	switch region {
	case "Europe":
		return []geo.Record{{ID: 75, Name: "France", ISO2: "FR"}, {ID: 82, Name: "Germany", ISO2: "DE"}}, nil
	case "Asia":
		return []geo.Record{{ID: 109, Name: "Japan", ISO2: "JP"}}, nil
	}
	return nil, nil
}

func (f *testFetcher) StatesByCountry(_ context.Context, countryID int64) ([]geo.Record, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	if countryID == 75 {
		return []geo.Record{{ID: 4796, Name: "Île-de-France", StateCode: "IDF", CountryCode: "FR"}}, nil
	}
	return nil, nil
}

func (f *testFetcher) StateByCode(_ context.Context, stateCode, countryCode string) (geo.Record, error) {
	if err := f.hit(); err != nil {
		return geo.Record{}, err
	}
	if stateCode == "IDF" && countryCode == "FR" {
		return geo.Record{ID: 4796, Name: "Île-de-France", StateCode: "IDF", CountryCode: "FR"}, nil
	}
	return geo.Record{}, geo.ErrNotFound
}

func (f *testFetcher) CitiesByState(_ context.Context, stateID int64, _ string, first int) ([]geo.Record, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	if stateID != 4796 {
		return nil, nil
	}
	cities := []geo.Record{
		{ID: 44856, Name: "Paris", StateCode: "IDF", CountryCode: "FR"},
		{ID: 44857, Name: "Versailles", StateCode: "IDF", CountryCode: "FR"},
	}
	if first > 0 && first < len(cities) {
		cities = cities[:first]
	}
	return cities, nil
}

// stubFetcher routes newFetcher to f for the duration of a test.
func stubFetcher(f browser.Fetcher) func() {
	original := newFetcher
	newFetcher = func(config.Options) (browser.Fetcher, func(), error) {
		return f, func() {}, nil
	}
	return func() { newFetcher = original }
}

func testBrowser(f browser.Fetcher) *browser.Browser {
	return browser.New(f, browser.Options{})
}
