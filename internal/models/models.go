package models

import "time"

// Coarse categories derived from the upstream top-level category label
const (
	CategoryBeer   = "beer"
	CategoryWine   = "wine"
	CategoryLiquor = "liquor"
	CategoryCider  = "cider"
	CategoryOther  = "other"
)

// Product represents a catalog item with its derived ranking metrics.
// The canonical product URL is the natural key used for upserts.
type Product struct {
	ID           int64     `db:"id" json:"id"`
	URL          string    `db:"url" json:"url"`
	Brand        string    `db:"brand" json:"brand"`
	Name         string    `db:"name" json:"name"`
	ProductID    int64     `db:"product_id" json:"productId"`
	APK          float64   `db:"apk" json:"apk"`
	VPK          float64   `db:"vpk" json:"vpk"`
	Price        float64   `db:"price" json:"price"`
	Alcohol      float64   `db:"alcohol" json:"alcohol"`
	Volume       float64   `db:"volume" json:"volume"`
	Country      string    `db:"country" json:"country"`
	Type         string    `db:"type" json:"type"`
	Img          string    `db:"img" json:"img"`
	LastOnSiteAt time.Time `db:"last_on_site_at" json:"lastOnSiteAt"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// RankingSnapshot is one appended entry in a product's ranking history.
// Rows are immutable; they are only appended or cascade-deleted with
// their product.
type RankingSnapshot struct {
	ID         int64     `db:"id" json:"id"`
	ProductID  int64     `db:"product_id" json:"productId"`
	SnapshotAt time.Time `db:"snapshot_at" json:"snapshotAt"`
	Rank       int       `db:"rank" json:"rank"`
	APK        float64   `db:"apk" json:"apk"`
	Price      float64   `db:"price" json:"price"`
}

// RankingRow is the slim projection the ranking accumulator walks.
type RankingRow struct {
	ID    int64   `db:"id"`
	APK   float64 `db:"apk"`
	Price float64 `db:"price"`
}

// RawImage is an image reference on an upstream catalog record.
type RawImage struct {
	ImageID string `json:"imageId"`
}

// RawProduct is one record as returned by the upstream catalog API.
type RawProduct struct {
	ProductID           string     `json:"productId"`
	ProductNumber       string     `json:"productNumber"`
	ProductNameBold     string     `json:"productNameBold"`
	ProductNameThin     string     `json:"productNameThin"`
	Price               float64    `json:"price"`
	AlcoholPercentage   float64    `json:"alcoholPercentage"`
	Volume              float64    `json:"volume"`
	Country             string     `json:"country"`
	CategoryLevel1      string     `json:"categoryLevel1"`
	CategoryLevel2      string     `json:"categoryLevel2"`
	CategoryLevel3      string     `json:"categoryLevel3"`
	CategoryLevel4      string     `json:"categoryLevel4"`
	CustomCategoryTitle string     `json:"customCategoryTitle"`
	AssortmentText      string     `json:"assortmentText"`
	Taste               string     `json:"taste"`
	Images              []RawImage `json:"images"`
}
