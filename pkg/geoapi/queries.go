package geoapi

// Operation names double as cache key prefixes and metric labels.
const (
	opCountriesByRegion = "CountriesByRegion"
	opStatesByCountry   = "StatesByCountry"
	opStateByCode       = "StateByCode"
	opCitiesByState     = "CitiesByState"
)

const countriesByRegionQuery = `query CountriesByRegion($region: Region!) {
  countries(region: $region) {
    edges {
      node { id name iso2 }
    }
  }
}`

const statesByCountryQuery = `query StatesByCountry($countryId: Int!) {
  states(countryId: $countryId) {
    edges {
      node { id name state_code country_code }
    }
  }
}`

const stateByCodeQuery = `query StateByCode($stateCode: String!, $countryCode: String!) {
  state(stateCode: $stateCode, countryCode: $countryCode) {
    id name state_code country_code
  }
}`

const citiesByStateQuery = `query CitiesByState($stateId: Int!, $countryCode: String!, $first: Int!) {
  cities(stateId: $stateId, countryCode: $countryCode, first: $first) {
    edges {
      node { id name state_code country_code }
    }
  }
}`
