package models

// RunReport holds summary statistics computed over one run's listings.
type RunReport struct {
	RunID          string
	TotalListings  int
	ActiveListings int
	FeedRows       int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Listing
	ListingsByCity map[string]int
	ListingsByType map[string]int
	MissingMLSID   int
	ProxyImageURLs int
}
