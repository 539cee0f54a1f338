package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SearchCondition is the structured filter sent to the site's search API.
type SearchCondition struct {
	Location      SearchLocation `json:"location"`
	ListingStatus []string       `json:"listingStatus"`
	PurchaseType  []string       `json:"purchaseType"`
	PropertyType  []string       `json:"propertyType"`
}

// SearchLocation restricts a search to a set of "City, ST" strings.
type SearchLocation struct {
	City []string `json:"city"`
}

// SearchRequest is one page request against the search API.
type SearchRequest struct {
	Condition SearchCondition
	PageSize  int
	Page      int
	Sort      string
}

// SearchPage is the decoded response of one search API call.
type SearchPage struct {
	Listings []SearchItem    `json:"listings"`
	Counts   json.RawMessage `json:"counts"`
}

// Total returns the advertised result count, or -1 when the API did not
// report a plain number.
func (p SearchPage) Total() int {
	n, err := strconv.Atoi(string(bytes.Trim(p.Counts, `"`)))
	if err != nil {
		return -1
	}
	return n
}

// FlexString decodes a JSON string or number into its string form.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// SearchItem is a raw listing as returned by the search API. Missing
// values decode to their zero value.
type SearchItem struct {
	ID               FlexString `json:"id"`
	MLSListingID     FlexString `json:"mlsListingId"`
	Price            float64    `json:"price"`
	Bedrooms         float64    `json:"bedrooms"`
	Bathrooms        float64    `json:"bathrooms"`
	Sqft             float64    `json:"sqft"`
	PropertyType     string     `json:"propertyType"`
	Flag             string     `json:"flag"`
	OpenHouseDesc    string     `json:"openHouseDesc"`
	StreetAddress    string     `json:"streetAddress"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	ZipCode          FlexString `json:"zipCode"`
	PreviewPicture   string     `json:"previewPicture"`
	DetailsDescribe  string     `json:"detailsDescribe"`
	DetailURL        string     `json:"detailUrl"`
	SubDivisionName  string     `json:"subDivisionName"`
	NeighborhoodName string     `json:"neighborhoodName"`
}

// StructuredSource is the Product block of a detail page's JSON-LD.
type StructuredSource struct {
	Name        string
	Price       string
	Image       string
	Description string
}

// RenderedSource holds raw text read from a detail page's rendered DOM.
type RenderedSource struct {
	Street      string
	City        string
	Status      string
	Beds        string
	Baths       string
	Sqft        string
	Price       string
	Image       string
	Description string
}

// KeyDetails are the label/value pairs of a detail page's "Key Details" section.
type KeyDetails map[string]string

// Detail page key-details labels.
const (
	KeyMLSID        = "MLS Listing ID"
	KeyPropertyType = "Property Type"
	KeySubdivision  = "Subdivision"
)

// DetailSources bundles everything read from one detail page. Structured
// is nil when the page carries no usable JSON-LD.
type DetailSources struct {
	URL        string
	Structured *StructuredSource
	Rendered   *RenderedSource
	Details    KeyDetails
}
