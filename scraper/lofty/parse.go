package lofty

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing-feed/models"
)

// Detail page selectors.
const (
	selJSONLD      = `script[type="application/ld+json"]`
	selStreet      = ".address-container .street"
	selCity        = ".address-container .city"
	selStatus      = ".house-status .status-text"
	selBeds        = ".bed-count .number"
	selBaths       = ".bath-count .number"
	selSqft        = ".sqft-count .number"
	selPrice       = ".price-number"
	selImage       = ".slide-left .img-content img"
	selDescription = ".read-more-content .info-data"
	selInfoTitle   = ".info-title"
	classInfoData  = "info-data"
)

// ParseDetailPage reads every source from one snapshot of a detail page.
func ParseDetailPage(pageURL, html string) (models.DetailSources, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.DetailSources{URL: pageURL}, fmt.Errorf("parse: %s: %w", pageURL, err)
	}
	return models.DetailSources{
		URL:        pageURL,
		Structured: parseStructured(doc),
		Rendered:   parseRendered(doc),
		Details:    parseKeyDetails(doc),
	}, nil
}

// parseStructured returns the first JSON-LD block typed Product, whether it
// appears alone or inside an array. Unparseable blocks are skipped.
func parseStructured(doc *goquery.Document) *models.StructuredSource {
	var found *models.StructuredSource
	doc.Find(selJSONLD).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = productFromJSONLD([]byte(s.Text()))
		return found == nil
	})
	return found
}

func productFromJSONLD(raw []byte) *models.StructuredSource {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	switch v := data.(type) {
	case map[string]any:
		if isProduct(v) {
			return toStructured(v)
		}
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok && isProduct(obj) {
				return toStructured(obj)
			}
		}
	}
	return nil
}

func isProduct(obj map[string]any) bool {
	t, _ := obj["@type"].(string)
	return t == "Product"
}

func toStructured(obj map[string]any) *models.StructuredSource {
	return &models.StructuredSource{
		Name:        scalar(obj["name"]),
		Price:       offerPrice(obj["offers"]),
		Image:       imageRef(obj["image"]),
		Description: scalar(obj["description"]),
	}
}

func offerPrice(v any) string {
	switch o := v.(type) {
	case map[string]any:
		return scalar(o["price"])
	case []any:
		for _, item := range o {
			if p := offerPrice(item); p != "" {
				return p
			}
		}
	}
	return ""
}

func imageRef(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]any:
		return scalar(img["url"])
	case []any:
		for _, item := range img {
			if s := imageRef(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// scalar renders a JSON string or number as text.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.2f", x), ".00")
	}
	return ""
}

func parseRendered(doc *goquery.Document) *models.RenderedSource {
	text := func(sel string) string {
		return strings.TrimSpace(doc.Find(sel).First().Text())
	}
	image, _ := doc.Find(selImage).First().Attr("src")
	return &models.RenderedSource{
		Street:      text(selStreet),
		City:        text(selCity),
		Status:      text(selStatus),
		Beds:        text(selBeds),
		Baths:       text(selBaths),
		Sqft:        text(selSqft),
		Price:       text(selPrice),
		Image:       strings.TrimSpace(image),
		Description: text(selDescription),
	}
}

// parseKeyDetails pairs each label with the value element that directly follows it.
func parseKeyDetails(doc *goquery.Document) models.KeyDetails {
	out := models.KeyDetails{}
	doc.Find(selInfoTitle).Each(func(_ int, s *goquery.Selection) {
		key := strings.TrimSpace(s.Text())
		val := s.Next()
		if key == "" || val.Length() == 0 || !val.HasClass(classInfoData) {
			return
		}
		out[key] = strings.TrimSpace(val.Text())
	})
	return out
}
