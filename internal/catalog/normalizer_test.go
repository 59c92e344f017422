package catalog

import (
	"strings"
	"testing"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNormalizer() *Normalizer {
	return NewNormalizer(config.CatalogConfig{
		ProductBaseURL: "https://shop.example.com/produkt/",
		ImageBaseURL:   "https://cdn.example.com/productimages/",
	})
}

func rawBeer() models.RawProduct {
	return models.RawProduct{
		ProductID:         "1021956",
		ProductNumber:     "152617",
		ProductNameBold:   "Mariestads",
		ProductNameThin:   "Export",
		Price:             14.9,
		AlcoholPercentage: 5.3,
		Volume:            500,
		Country:           "Sverige",
		CategoryLevel1:    "Öl",
		CategoryLevel2:    "Ljus lager",
		AssortmentText:    "Fast sortiment",
		Taste:             "Maltig smak med inslag av knäckebröd",
		Images:            []models.RawImage{{ImageID: "507297"}},
	}
}

func TestComputeAPK(t *testing.T) {
	tests := []struct {
		name     string
		alcohol  float64
		volume   float64
		price    float64
		expected float64
	}{
		{"beer can", 5.3, 500, 14.9, 1.7785},
		{"wine bottle", 13, 750, 89, 1.0955},
		{"strong spirit", 40, 700, 329, 0.8511},
		{"zero price", 5.3, 500, 0, 0},
		{"negative price", 5.3, 500, -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ComputeAPK(tt.alcohol, tt.volume, tt.price), 0.00001)
		})
	}
}

func TestComputeVPK(t *testing.T) {
	assert.InDelta(t, 33.557, ComputeVPK(500, 14.9), 0.001)
	assert.Equal(t, 0.0, ComputeVPK(500, 0))
}

func TestCoarseCategory(t *testing.T) {
	assert.Equal(t, models.CategoryBeer, CoarseCategory("Öl"))
	assert.Equal(t, models.CategoryWine, CoarseCategory("Vin"))
	assert.Equal(t, models.CategoryLiquor, CoarseCategory("Sprit"))
	assert.Equal(t, models.CategoryCider, CoarseCategory("Cider & blanddrycker"))
	assert.Equal(t, models.CategoryOther, CoarseCategory("Presentartiklar"))
	assert.Equal(t, models.CategoryOther, CoarseCategory(""))
}

func TestFoldSearchText(t *testing.T) {
	assert.Equal(t, "chateau d yquem", FoldSearchText("Château d'Yquem"))
	assert.Equal(t, "abro bryggeri", FoldSearchText("Åbro Bryggeri"))
	assert.Equal(t, "guinness", FoldSearchText("  Guinness  "))
	assert.Equal(t, "", FoldSearchText(""))
}

func TestNormalizeAcceptsValidRecord(t *testing.T) {
	n := testNormalizer()

	res := n.Normalize([]models.RawProduct{rawBeer()})

	require.Len(t, res.Products, 1)
	require.Len(t, res.SeenURLs, 1)
	assert.Equal(t, 0, res.Rejected)

	p := res.Products[0]
	assert.Equal(t, "https://shop.example.com/produkt/152617", p.URL)
	assert.Equal(t, p.URL, res.SeenURLs[0])
	assert.Equal(t, "Mariestads", p.Brand)
	assert.Equal(t, "Export", p.Name)
	assert.Equal(t, int64(1021956), p.ProductID)
	assert.InDelta(t, 1.7785, p.APK, 0.00001)
	assert.InDelta(t, 33.557, p.VPK, 0.001)
	assert.Equal(t, "sverige", p.Country)
	assert.Equal(t, "https://cdn.example.com/productimages/507297_400.png", p.Img)
}

func TestNormalizeRejectsInvalidRecords(t *testing.T) {
	n := testNormalizer()

	noAlcohol := rawBeer()
	noAlcohol.AlcoholPercentage = 0

	freeBeer := rawBeer()
	freeBeer.Price = 0

	noVolume := rawBeer()
	noVolume.Volume = 0

	noNumber := rawBeer()
	noNumber.ProductNumber = ""

	res := n.Normalize([]models.RawProduct{rawBeer(), noAlcohol, freeBeer, noVolume, noNumber})

	assert.Len(t, res.Products, 1)
	assert.Equal(t, 4, res.Rejected)
}

func TestCompositeType(t *testing.T) {
	raw := rawBeer()
	composite := compositeType(models.CategoryBeer, &raw)

	assert.True(t, strings.HasPrefix(composite, "beer, Fast sortiment"), composite)
	assert.Contains(t, composite, "Öl,Ljus lager")
	// search blob is folded and lower-cased
	assert.Contains(t, composite, "mariestads export")
	assert.Contains(t, composite, "knackebrod")
}

func TestCompositeTypeAssortmentFallback(t *testing.T) {
	raw := rawBeer()
	raw.AssortmentText = ""

	composite := compositeType(models.CategoryBeer, &raw)
	assert.True(t, strings.HasPrefix(composite, "beer, unknown"), composite)
}

func TestNormalizeOmitsMissingImage(t *testing.T) {
	n := testNormalizer()

	raw := rawBeer()
	raw.Images = nil

	res := n.Normalize([]models.RawProduct{raw})
	require.Len(t, res.Products, 1)
	assert.Empty(t, res.Products[0].Img)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := testNormalizer()
	payload := []models.RawProduct{rawBeer()}

	first := n.Normalize(payload)
	second := n.Normalize(payload)

	assert.Equal(t, first.Products, second.Products)
	assert.Equal(t, first.SeenURLs, second.SeenURLs)
}
