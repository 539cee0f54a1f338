package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"listing-feed/models"
	"listing-feed/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a run's listings. Callers fill in RunID and FeedRows.
func (s *InsightService) Generate(listings []*models.Listing) *models.RunReport {
	report := &models.RunReport{
		ListingsByCity: make(map[string]int),
		ListingsByType: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priceListings []*models.Listing

	for _, l := range listings {
		if l.IsActive() {
			report.ActiveListings++
		}
		if l.MLSID == "" {
			report.MissingMLSID++
		}
		if isProxyImageURL(l.ImageURL) {
			report.ProxyImageURLs++
		}
		if l.Price > 0 {
			priceListings = append(priceListings, l)
		}
		if city := l.ShortCity(); city != "" {
			report.ListingsByCity[city]++
		}
		if l.PropertyType != "" {
			report.ListingsByType[l.PropertyType]++
		}
	}

	// Price stats (only listings with price > 0)
	if len(priceListings) > 0 {
		report.MinPrice = priceListings[0].Price
		report.MaxPrice = priceListings[0].Price
		report.MostExpensive = priceListings[0]
		var total float64
		for _, l := range priceListings {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priceListings)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[insights] %d listings, %d active, %d without MLS id",
		report.TotalListings, report.ActiveListings, report.MissingMLSID)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LISTING FEED RUN %s\033[0m\n", r.RunID)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings scraped : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Active listings        : \033[1m%d\033[0m\n", r.ActiveListings)
	fmt.Fprintf(w, "  Feed rows written      : \033[1m%d\033[0m\n", r.FeedRows)
	fmt.Fprintf(w, "  Missing MLS id         : \033[1m%d\033[0m\n", r.MissingMLSID)
	fmt.Fprintf(w, "  Undecoded proxy images : \033[1m%d\033[0m\n", r.ProxyImageURLs)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", FormatPrice(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", FormatPrice(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", FormatPrice(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Address, 50))
		fmt.Fprintf(w, "  City  : %s\n", r.MostExpensive.ShortCity())
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", FormatPrice(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	printCounts(w, "Listings by City", r.ListingsByCity, thin)
	printCounts(w, "Listings by Property Type", r.ListingsByType, thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n")
		fmt.Fprintln(w)
		return
	}

	// Sort by count descending, then name
	type keyCount struct {
		key   string
		count int
	}
	var kcs []keyCount
	for k, c := range counts {
		kcs = append(kcs, keyCount{k, c})
	}
	sort.Slice(kcs, func(i, j int) bool {
		if kcs[i].count != kcs[j].count {
			return kcs[i].count > kcs[j].count
		}
		return kcs[i].key < kcs[j].key
	})
	for _, kc := range kcs {
		fmt.Fprintf(w, "  %-30s %4d\n", truncate(kc.key, 28), kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	return Truncate(s, max-3) + "..."
}
