package models

import (
	"encoding/json"
	"testing"
)

func TestSearchPageDecodesMixedIDs(t *testing.T) {
	body := `{"listings":[
		{"id": 987654321012, "mlsListingId": "219101234", "price": 575000, "bedrooms": 3, "zipCode": 92260},
		{"id": "abc-1", "mlsListingId": null, "sqft": 1833.0}
	], "counts": 245}`

	var page SearchPage
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(page.Listings))
	}
	if page.Listings[0].ID != "987654321012" {
		t.Errorf("numeric id: got %q", page.Listings[0].ID)
	}
	if page.Listings[0].ZipCode != "92260" {
		t.Errorf("numeric zip: got %q", page.Listings[0].ZipCode)
	}
	if page.Listings[1].ID != "abc-1" || page.Listings[1].MLSListingID != "" {
		t.Errorf("string/null ids: got %q / %q", page.Listings[1].ID, page.Listings[1].MLSListingID)
	}
	if page.Total() != 245 {
		t.Errorf("Total: got %d, want 245", page.Total())
	}
}

func TestSearchPageTotalUnknown(t *testing.T) {
	page := SearchPage{Counts: json.RawMessage(`{"all": 3}`)}
	if page.Total() != -1 {
		t.Errorf("Total for object counts: got %d, want -1", page.Total())
	}
	if (SearchPage{}).Total() != -1 {
		t.Error("Total for missing counts should be -1")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		l    Listing
		want string
	}{
		{Listing{Bedrooms: 3, PropertyType: "Condo", City: "Palm Desert, CA 92260"}, "3BR Condo in Palm Desert"},
		{Listing{PropertyType: "Land", City: "Thermal"}, "Land in Thermal"},
		{Listing{Address: "1 Main St"}, "1 Main St"},
	}
	for _, tt := range tests {
		if got := tt.l.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q; want %q", got, tt.want)
		}
	}
}

func TestFeedRowRecordDefaultsListingType(t *testing.T) {
	rec := FeedRow{ListingID: "1"}.Record()
	if len(rec) != len(FeedColumns) {
		t.Fatalf("record has %d columns, want %d", len(rec), len(FeedColumns))
	}
	if rec[7] != DefaultListingType {
		t.Errorf("listing type: got %q, want %q", rec[7], DefaultListingType)
	}
}
