package services

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"listing-feed/models"
	"listing-feed/utils"
)

func sampleListings() []*models.Listing {
	return []*models.Listing{
		{MLSID: "A1", Address: "1 Palm Way", City: "Palm Desert, CA 92260", PropertyType: "Condo", Status: "Active", Price: 200000, ImageURL: "https://cdn.example/1.jpg"},
		{MLSID: "A2", Address: "2 Palm Way", City: "Palm Desert, CA 92260", PropertyType: "Single Family Home", Status: "Active", Price: 50000},
		{MLSID: "A3", Address: "3 Date Ln", City: "Indio, CA 92201", PropertyType: "Condo", Status: "Pending", Price: 120000},
		{MLSID: "", Address: "4 Date Ln", City: "La Quinta, CA 92253", PropertyType: "Land", Status: "Active", Price: 300000,
			ImageURL: "https://img.chime.me/imageemb/mls-listing/1/2/original_abc.jpg"},
		{MLSID: "A5", Address: "5 Date Ln", City: "Indio, CA 92201", Status: "Active", Price: 0},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.ActiveListings != 4 {
		t.Errorf("ActiveListings: got %d, want 4", r.ActiveListings)
	}
	if r.MissingMLSID != 1 {
		t.Errorf("MissingMLSID: got %d, want 1", r.MissingMLSID)
	}
	if r.ProxyImageURLs != 1 {
		t.Errorf("ProxyImageURLs: got %d, want 1", r.ProxyImageURLs)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleListings())
	wantAvg := 167500.0
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 50000 {
		t.Errorf("MinPrice: got %.2f, want 50000", r.MinPrice)
	}
	if r.MaxPrice != 300000 {
		t.Errorf("MaxPrice: got %.2f, want 300000", r.MaxPrice)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleListings())
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.Address != "4 Date Ln" {
		t.Errorf("MostExpensive: got %q, want %q", r.MostExpensive.Address, "4 Date Ln")
	}
}

func TestInsightMostExpensiveFirstListing(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate([]*models.Listing{{Address: "Only", Price: 10}})
	if r.MostExpensive == nil || r.MostExpensive.Address != "Only" {
		t.Errorf("MostExpensive: got %+v, want the only priced listing", r.MostExpensive)
	}
}

func TestInsightGrouping(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleListings())
	if r.ListingsByCity["Palm Desert"] != 2 {
		t.Errorf("Palm Desert count: got %d, want 2", r.ListingsByCity["Palm Desert"])
	}
	if r.ListingsByCity["Indio"] != 2 {
		t.Errorf("Indio count: got %d, want 2", r.ListingsByCity["Indio"])
	}
	if r.ListingsByType["Condo"] != 2 {
		t.Errorf("Condo count: got %d, want 2", r.ListingsByType["Condo"])
	}
	if _, ok := r.ListingsByType[""]; ok {
		t.Errorf("empty property type should not be counted")
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleListings())
	r.RunID = "run-1"
	r.FeedRows = 3

	var buf bytes.Buffer
	svc.Print(&buf, r)
	out := buf.String()
	for _, want := range []string{"run-1", "$300,000", "Palm Desert", "Single Family Home"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"Café Olé Résidence", 18, "Café Olé Résidence"},
		{"Café Olé Résidence", 10, "Café Ol..."},
		{"日本語の住所です", 6, "日本語..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
		}
	}
}
