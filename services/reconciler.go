package services

import (
	"errors"
	"strings"

	"listing-feed/models"
	"listing-feed/utils"
)

var (
	// ErrNoMLSID marks a detail page without an MLS id. Such records are
	// unusable for the feed and are dropped rather than failing the run.
	ErrNoMLSID = errors.New("reconcile: no MLS listing id")
	// ErrNoRenderedSource is returned when the rendered DOM could not be read.
	ErrNoRenderedSource = errors.New("reconcile: rendered source missing")
)

// Source names a partial data source for one listing.
type Source string

const (
	SourceStructured Source = "structured"
	SourceRendered   Source = "rendered"
	SourceDetails    Source = "details"
)

// Reconciled fields.
const (
	FieldPrice        = "price"
	FieldImage        = "image"
	FieldAddress      = "address"
	FieldCity         = "city"
	FieldStatus       = "status"
	FieldBedrooms     = "bedrooms"
	FieldBathrooms    = "bathrooms"
	FieldSqft         = "sqft"
	FieldDescription  = "description"
	FieldMLSID        = "mls_id"
	FieldPropertyType = "property_type"
	FieldSubdivision  = "subdivision"
)

// candidate reads one field from one source. read reports false when the
// source itself is absent.
type candidate struct {
	source Source
	read   func(models.DetailSources) (string, bool)
	valid  func(string) bool
}

type fieldRule struct {
	field      string
	candidates []candidate
	assign     func(l *models.Listing, v string)
}

func nonEmpty(v string) bool { return strings.TrimSpace(v) != "" }

func positivePrice(v string) bool { return ParsePrice(v) > 0 }

func structured(get func(*models.StructuredSource) string) func(models.DetailSources) (string, bool) {
	return func(s models.DetailSources) (string, bool) {
		if s.Structured == nil {
			return "", false
		}
		return get(s.Structured), true
	}
}

func rendered(get func(*models.RenderedSource) string) func(models.DetailSources) (string, bool) {
	return func(s models.DetailSources) (string, bool) {
		if s.Rendered == nil {
			return "", false
		}
		return get(s.Rendered), true
	}
}

func detail(key string) func(models.DetailSources) (string, bool) {
	return func(s models.DetailSources) (string, bool) {
		if s.Details == nil {
			return "", false
		}
		v, ok := s.Details[key]
		return v, ok
	}
}

// precedence lists, per field, the sources to try in order. The first
// candidate whose value passes its validity check wins.
var precedence = []fieldRule{
	{
		field: FieldPrice,
		candidates: []candidate{
			{SourceStructured, structured(func(s *models.StructuredSource) string { return s.Price }), positivePrice},
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Price }), positivePrice},
		},
		assign: func(l *models.Listing, v string) { l.Price = ParsePrice(v) },
	},
	{
		field: FieldImage,
		candidates: []candidate{
			{SourceStructured, structured(func(s *models.StructuredSource) string { return s.Image }), nonEmpty},
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Image }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.ImageURL = DecodeImageURL(strings.TrimSpace(v)) },
	},
	{
		field: FieldAddress,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Street }), nonEmpty},
			{SourceStructured, structured(func(s *models.StructuredSource) string { return s.Name }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Address = NormaliseText(v) },
	},
	{
		field: FieldCity,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.City }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.City = NormaliseText(v) },
	},
	{
		field: FieldStatus,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Status }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Status = NormaliseText(v) },
	},
	{
		field: FieldBedrooms,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Beds }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Bedrooms = ExtractInt(v) },
	},
	{
		field: FieldBathrooms,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Baths }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Bathrooms = ExtractInt(v) },
	},
	{
		field: FieldSqft,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Sqft }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Sqft = ExtractInt(v) },
	},
	{
		field: FieldDescription,
		candidates: []candidate{
			{SourceRendered, rendered(func(r *models.RenderedSource) string { return r.Description }), nonEmpty},
			{SourceStructured, structured(func(s *models.StructuredSource) string { return s.Description }), nonEmpty},
		},
		assign: func(l *models.Listing, v string) { l.Description = CleanDescription(v, DescriptionLimit) },
	},
	{
		field:      FieldMLSID,
		candidates: []candidate{{SourceDetails, detail(models.KeyMLSID), nonEmpty}},
		assign:     func(l *models.Listing, v string) { l.MLSID = strings.TrimSpace(v) },
	},
	{
		field:      FieldPropertyType,
		candidates: []candidate{{SourceDetails, detail(models.KeyPropertyType), nonEmpty}},
		assign:     func(l *models.Listing, v string) { l.PropertyType = NormaliseText(v) },
	},
	{
		field:      FieldSubdivision,
		candidates: []candidate{{SourceDetails, detail(models.KeySubdivision), nonEmpty}},
		assign:     func(l *models.Listing, v string) { l.Subdivision = NormaliseText(v) },
	},
}

// Resolve returns the winning raw value for field and the source it came
// from. ok is false when no source supplies a valid value.
func Resolve(field string, src models.DetailSources) (value string, from Source, ok bool) {
	for _, rule := range precedence {
		if rule.field != field {
			continue
		}
		return resolveRule(rule, src)
	}
	return "", "", false
}

func resolveRule(rule fieldRule, src models.DetailSources) (string, Source, bool) {
	for _, c := range rule.candidates {
		v, present := c.read(src)
		if present && c.valid(v) {
			return v, c.source, true
		}
	}
	return "", "", false
}

// Reconciler merges the partial sources of one detail page into a Listing.
type Reconciler struct {
	region string
	logger *utils.Logger
}

// NewReconciler creates a Reconciler that fills in region as the default state.
func NewReconciler(region string, logger *utils.Logger) *Reconciler {
	if region == "" {
		region = models.DefaultRegion
	}
	return &Reconciler{region: region, logger: logger}
}

// Reconcile builds the canonical Listing for src. It returns ErrNoMLSID when
// no MLS id can be resolved and ErrNoRenderedSource when the DOM is missing.
func (r *Reconciler) Reconcile(src models.DetailSources) (*models.Listing, error) {
	if src.Rendered == nil {
		return nil, ErrNoRenderedSource
	}
	if src.Structured == nil {
		r.logger.Debug("[reconcile] No structured data for %s, using rendered page only", src.URL)
	}

	listing := models.NewListing(src.URL)
	listing.State = r.region

	for _, rule := range precedence {
		v, from, ok := resolveRule(rule, src)
		if !ok {
			continue
		}
		rule.assign(listing, v)
		r.logger.Debug("[reconcile] %s: %s <- %s", src.URL, rule.field, from)
	}

	if listing.MLSID == "" {
		return nil, ErrNoMLSID
	}
	return listing, nil
}

// Overlay fills a discovered listing with the fields a detail extraction
// produced. Non-zero detail values win; identity from the search API is kept.
func Overlay(base, detail *models.Listing) *models.Listing {
	out := *base
	if detail == nil {
		return &out
	}

	if detail.MLSID != "" {
		out.MLSID = detail.MLSID
	}
	if detail.Address != "" {
		out.Address = detail.Address
	}
	if detail.City != "" {
		out.City = detail.City
	}
	if detail.Price > 0 {
		out.Price = detail.Price
	}
	if detail.Bedrooms > 0 {
		out.Bedrooms = detail.Bedrooms
	}
	if detail.Bathrooms > 0 {
		out.Bathrooms = detail.Bathrooms
	}
	if detail.Sqft > 0 {
		out.Sqft = detail.Sqft
	}
	if detail.PropertyType != "" {
		out.PropertyType = detail.PropertyType
	}
	if detail.Status != "" {
		out.Status = detail.Status
	}
	if detail.ImageURL != "" {
		out.ImageURL = detail.ImageURL
	}
	if detail.Description != "" {
		out.Description = detail.Description
	}
	if detail.Subdivision != "" {
		out.Subdivision = detail.Subdivision
	}
	if !detail.ScrapedAt.IsZero() {
		out.ScrapedAt = detail.ScrapedAt
	}
	return &out
}
