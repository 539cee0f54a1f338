package models

// DefaultListingType is written when a listing carries no transaction type.
const DefaultListingType = "For Sale"

// FeedColumns is the fixed header order of the real-estate ads feed.
var FeedColumns = []string{
	"Listing ID",
	"Listing name",
	"Final URL",
	"Image URL",
	"Price",
	"City name",
	"Property type",
	"Listing type",
	"Address",
	"Description",
	"Contextual keywords",
}

// FeedRow is the projection of one active Listing into the feed schema.
// Rows are derived on demand and never stored on their own.
type FeedRow struct {
	ListingID          string
	ListingName        string
	FinalURL           string
	ImageURL           string
	Price              string
	CityName           string
	PropertyType       string
	ListingType        string
	Address            string
	Description        string
	ContextualKeywords string
}

// Record returns the row's values in FeedColumns order.
func (r FeedRow) Record() []string {
	listingType := r.ListingType
	if listingType == "" {
		listingType = DefaultListingType
	}
	return []string{
		r.ListingID,
		r.ListingName,
		r.FinalURL,
		r.ImageURL,
		r.Price,
		r.CityName,
		r.PropertyType,
		listingType,
		r.Address,
		r.Description,
		r.ContextualKeywords,
	}
}
