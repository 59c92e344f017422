package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/models"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Upstream top-level category labels mapped to coarse categories.
// Anything unlisted maps to "other".
var coarseCategories = map[string]string{
	"Öl":                   models.CategoryBeer,
	"Vin":                  models.CategoryWine,
	"Sprit":                models.CategoryLiquor,
	"Cider & blanddrycker": models.CategoryCider,
}

// imageVariant is the fixed resolution requested from the image CDN.
const imageVariant = "_400.png"

// Normalizer maps raw upstream records to product candidates.
type Normalizer struct {
	productBaseURL string
	imageBaseURL   string
	logger         *zap.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(cfg config.CatalogConfig) *Normalizer {
	return &Normalizer{
		productBaseURL: cfg.ProductBaseURL,
		imageBaseURL:   cfg.ImageBaseURL,
		logger:         util.GetLogger(),
	}
}

// Result is the outcome of normalizing one full catalog fetch.
type Result struct {
	Products []models.Product
	SeenURLs []string
	Rejected int
}

// Normalize maps the raw catalog to product candidates, rejecting
// records with non-positive alcohol, price or volume and records that
// cannot produce a canonical URL.
func (n *Normalizer) Normalize(raw []models.RawProduct) Result {
	res := Result{
		Products: make([]models.Product, 0, len(raw)),
		SeenURLs: make([]string, 0, len(raw)),
	}

	for i := range raw {
		r := &raw[i]
		if r.ProductNumber == "" {
			n.logger.Warn("Skipping record without product number",
				zap.String("name", r.ProductNameBold))
			res.Rejected++
			continue
		}
		p, ok := n.normalizeOne(r)
		if !ok {
			res.Rejected++
			continue
		}
		res.Products = append(res.Products, p)
		res.SeenURLs = append(res.SeenURLs, p.URL)
	}

	return res
}

func (n *Normalizer) normalizeOne(r *models.RawProduct) (models.Product, bool) {
	if r.AlcoholPercentage <= 0 || r.Price <= 0 || r.Volume <= 0 {
		return models.Product{}, false
	}

	upstreamID, _ := strconv.ParseInt(r.ProductID, 10, 64)
	category := CoarseCategory(r.CategoryLevel1)

	return models.Product{
		URL:       n.productBaseURL + r.ProductNumber,
		Brand:     strings.TrimSpace(r.ProductNameBold),
		Name:      strings.TrimSpace(r.ProductNameThin),
		ProductID: upstreamID,
		APK:       ComputeAPK(r.AlcoholPercentage, r.Volume, r.Price),
		VPK:       ComputeVPK(r.Volume, r.Price),
		Price:     r.Price,
		Alcohol:   r.AlcoholPercentage,
		Volume:    r.Volume,
		Country:   strings.ToLower(r.Country),
		Type:      compositeType(category, r),
		Img:       n.imageURL(r),
	}, true
}

func (n *Normalizer) imageURL(r *models.RawProduct) string {
	if len(r.Images) == 0 || r.Images[0].ImageID == "" {
		return ""
	}
	return n.imageBaseURL + r.Images[0].ImageID + imageVariant
}

// CoarseCategory maps the upstream top-level category label to one of
// the coarse categories.
func CoarseCategory(level1 string) string {
	if c, ok := coarseCategories[level1]; ok {
		return c
	}
	return models.CategoryOther
}

// compositeType builds the denormalized type string the query engine
// matches by substring: "{category}, {assortment}", the category path,
// a folded search blob of name+brand+taste, and any free-text category
// label.
func compositeType(category string, r *models.RawProduct) string {
	assortment := r.AssortmentText
	if assortment == "" {
		assortment = "unknown"
	}

	parts := []string{fmt.Sprintf("%s, %s", category, assortment)}

	var path []string
	for _, level := range []string{r.CategoryLevel1, r.CategoryLevel2, r.CategoryLevel3, r.CategoryLevel4} {
		if level != "" {
			path = append(path, level)
		}
	}
	if len(path) > 0 {
		parts = append(parts, strings.Join(path, ","))
	}

	blob := FoldSearchText(strings.TrimSpace(
		r.ProductNameBold + " " + r.ProductNameThin + " " + r.Taste))
	if blob != "" {
		parts = append(parts, blob)
	}

	if r.CustomCategoryTitle != "" {
		parts = append(parts, r.CustomCategoryTitle)
	}

	return strings.Join(parts, ", ")
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldSearchText strips diacritics, replaces apostrophes with spaces and
// lower-cases the result, collapsing runs of whitespace.
func FoldSearchText(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.NewReplacer("'", " ", "’", " ", "`", " ").Replace(folded)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// ComputeAPK returns milliliters of pure ethanol per currency unit,
// rounded to four decimals, or 0 when the computation is invalid.
func ComputeAPK(alcohol, volume, price float64) float64 {
	if price <= 0 {
		return 0
	}
	v := (alcohol * volume) / (100 * price)
	return roundTo4(v)
}

// ComputeVPK returns milliliters of liquid per currency unit, rounded to
// four decimals, or 0 when the computation is invalid.
func ComputeVPK(volume, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return roundTo4(volume / price)
}

func roundTo4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
