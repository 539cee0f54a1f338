package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-feed/models"
	"listing-feed/utils"
)

func newTestReconciler() *Reconciler {
	return NewReconciler("CA", utils.NewDiscardLogger())
}

func fullSources() models.DetailSources {
	return models.DetailSources{
		URL: "https://bradschmett.com/listing-detail/1001/123-main-st",
		Structured: &models.StructuredSource{
			Name:        "123 Main St Palm Desert Palm Desert",
			Price:       "500000",
			Image:       "https://cdn.photos.sparkplatform.com/ca/structured.jpg",
			Description: "From JSON-LD",
		},
		Rendered: &models.RenderedSource{
			Street:      "123 Main St",
			City:        "Palm Desert",
			Status:      "Active",
			Beds:        "3",
			Baths:       "2",
			Sqft:        "1,833",
			Price:       "$0",
			Image:       "https://cdn.photos.sparkplatform.com/ca/rendered.jpg",
			Description: "Rendered   description",
		},
		Details: models.KeyDetails{
			models.KeyMLSID:        "219101234",
			models.KeyPropertyType: "Condo",
			models.KeySubdivision:  "Indian Ridge",
		},
	}
}

func TestReconcileStructuredPriceWins(t *testing.T) {
	l, err := newTestReconciler().Reconcile(fullSources())
	require.NoError(t, err)

	assert.Equal(t, 500000.0, l.Price)
	assert.Equal(t, "https://cdn.photos.sparkplatform.com/ca/structured.jpg", l.ImageURL)
}

func TestReconcileRenderedPriceFallback(t *testing.T) {
	src := fullSources()
	src.Structured.Price = "0"
	src.Rendered.Price = "$575,000"

	l, err := newTestReconciler().Reconcile(src)
	require.NoError(t, err)
	assert.Equal(t, 575000.0, l.Price)

	_, from, ok := Resolve(FieldPrice, src)
	assert.True(t, ok)
	assert.Equal(t, SourceRendered, from)
}

func TestReconcileRenderedFieldsAuthoritative(t *testing.T) {
	l, err := newTestReconciler().Reconcile(fullSources())
	require.NoError(t, err)

	assert.Equal(t, "123 Main St", l.Address)
	assert.Equal(t, "Palm Desert", l.City)
	assert.Equal(t, "CA", l.State)
	assert.Equal(t, "Active", l.Status)
	assert.Equal(t, 3, l.Bedrooms)
	assert.Equal(t, 2, l.Bathrooms)
	assert.Equal(t, 1833, l.Sqft)
	assert.Equal(t, "Rendered description", l.Description)
	assert.Equal(t, "219101234", l.MLSID)
	assert.Equal(t, "Condo", l.PropertyType)
	assert.Equal(t, "Indian Ridge", l.Subdivision)
	assert.False(t, l.ScrapedAt.IsZero())
}

func TestReconcileAddressFallsBackToStructuredName(t *testing.T) {
	src := fullSources()
	src.Rendered.Street = "  "

	l, err := newTestReconciler().Reconcile(src)
	require.NoError(t, err)
	assert.Equal(t, "123 Main St Palm Desert Palm Desert", l.Address)
}

func TestReconcileDescriptionFallsBackToStructured(t *testing.T) {
	src := fullSources()
	src.Rendered.Description = ""

	l, err := newTestReconciler().Reconcile(src)
	require.NoError(t, err)
	assert.Equal(t, "From JSON-LD", l.Description)
}

func TestReconcileWithoutStructuredSource(t *testing.T) {
	src := fullSources()
	src.Structured = nil
	src.Rendered.Price = "$610,000"

	l, err := newTestReconciler().Reconcile(src)
	require.NoError(t, err)

	assert.Equal(t, 610000.0, l.Price)
	assert.Equal(t, "https://cdn.photos.sparkplatform.com/ca/rendered.jpg", l.ImageURL)
	assert.Equal(t, "123 Main St", l.Address)
}

func TestReconcileDecodesProxyImage(t *testing.T) {
	src := fullSources()
	src.Structured.Image = ""
	src.Rendered.Image = proxyURL(encodeProxyToken(t, cdnURL))

	l, err := newTestReconciler().Reconcile(src)
	require.NoError(t, err)
	assert.Equal(t, cdnURL, l.ImageURL)
}

func TestReconcileRequiresMLSID(t *testing.T) {
	src := fullSources()
	delete(src.Details, models.KeyMLSID)

	l, err := newTestReconciler().Reconcile(src)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrNoMLSID)

	src.Details = nil
	_, err = newTestReconciler().Reconcile(src)
	assert.ErrorIs(t, err, ErrNoMLSID)
}

func TestReconcileRequiresRenderedSource(t *testing.T) {
	src := fullSources()
	src.Rendered = nil

	_, err := newTestReconciler().Reconcile(src)
	assert.ErrorIs(t, err, ErrNoRenderedSource)
}

func TestResolvePrecedenceTable(t *testing.T) {
	src := fullSources()

	cases := []struct {
		field string
		value string
		from  Source
	}{
		{FieldPrice, "500000", SourceStructured},
		{FieldImage, "https://cdn.photos.sparkplatform.com/ca/structured.jpg", SourceStructured},
		{FieldAddress, "123 Main St", SourceRendered},
		{FieldDescription, "Rendered   description", SourceRendered},
		{FieldMLSID, "219101234", SourceDetails},
	}
	for _, c := range cases {
		v, from, ok := Resolve(c.field, src)
		assert.True(t, ok, c.field)
		assert.Equal(t, c.value, v, c.field)
		assert.Equal(t, c.from, from, c.field)
	}

	_, _, ok := Resolve("unknown", src)
	assert.False(t, ok)
}

func TestOverlayKeepsIdentityAndFillsGaps(t *testing.T) {
	base := &models.Listing{
		URL: "u", SiteID: "1001", Price: 450000, City: "Indio", Status: "Active", State: "CA",
	}
	detail := &models.Listing{
		MLSID: "219101234", Price: 0, Sqft: 1500, ImageURL: "https://cdn/x.jpg", PropertyType: "Condo",
	}

	got := Overlay(base, detail)

	assert.Equal(t, "1001", got.SiteID)
	assert.Equal(t, "219101234", got.MLSID)
	assert.Equal(t, 450000.0, got.Price)
	assert.Equal(t, 1500, got.Sqft)
	assert.Equal(t, "Indio", got.City)
	assert.Equal(t, "https://cdn/x.jpg", got.ImageURL)
	assert.Equal(t, "", base.MLSID, "base must not be mutated")
}
