package businesses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Business is an affiliated venue.
type Business struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	PhotoURL      string    `json:"photoUrl"`
	LogoURL       string    `json:"logoUrl"`
	CoverImageURL string    `json:"coverImageUrl"`
	Email         string    `json:"email"`
	Country       string    `json:"country"`
	Province      string    `json:"province"`
	Canton        string    `json:"canton"`
	District      string    `json:"district"`
	Address       string    `json:"address"`
	WazeLink      string    `json:"wazeLink"`
	GoogleMapLink string    `json:"googleMapLink"`
	FacebookLink  string    `json:"facebookLink"`
	InstagramLink string    `json:"instagramLink"`
	XLink         string    `json:"xLink"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Slug returns the public page slug of b.
func (b Business) Slug() string {
	return Slug(b.Name, b.ID)
}

// Input is the full representation accepted by POST and PUT.
type Input struct {
	Name          string `json:"name" validate:"required,min=3,max=120"`
	Type          string `json:"type" validate:"required,max=40"`
	Description   string `json:"description" validate:"required,max=2000"`
	PhotoURL      string `json:"photoUrl,omitempty" validate:"omitempty,url"`
	LogoURL       string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	CoverImageURL string `json:"coverImageUrl" validate:"required,url"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Country       string `json:"country,omitempty" validate:"omitempty,len=2"`
	Province      string `json:"province" validate:"required"`
	Canton        string `json:"canton" validate:"required"`
	District      string `json:"district" validate:"required"`
	Address       string `json:"address" validate:"required,min=10"`
	WazeLink      string `json:"wazeLink,omitempty" validate:"omitempty,url"`
	GoogleMapLink string `json:"googleMapLink,omitempty" validate:"omitempty,url"`
	FacebookLink  string `json:"facebookLink,omitempty" validate:"omitempty,url"`
	InstagramLink string `json:"instagramLink,omitempty" validate:"omitempty,url"`
	XLink         string `json:"xLink,omitempty" validate:"omitempty,url"`
}

// Patch is a partial update. Nil fields were not submitted.
type Patch struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=3,max=120"`
	Type          *string `json:"type,omitempty" validate:"omitempty,max=40"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	PhotoURL      *string `json:"photoUrl,omitempty" validate:"omitempty,url"`
	LogoURL       *string `json:"logoUrl,omitempty" validate:"omitempty,url"`
	CoverImageURL *string `json:"coverImageUrl,omitempty" validate:"omitempty,url"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Country       *string `json:"country,omitempty" validate:"omitempty,len=2"`
	Province      *string `json:"province,omitempty"`
	Canton        *string `json:"canton,omitempty"`
	District      *string `json:"district,omitempty"`
	Address       *string `json:"address,omitempty" validate:"omitempty,min=10"`
	WazeLink      *string `json:"wazeLink,omitempty" validate:"omitempty,url"`
	GoogleMapLink *string `json:"googleMapLink,omitempty" validate:"omitempty,url"`
	FacebookLink  *string `json:"facebookLink,omitempty" validate:"omitempty,url"`
	InstagramLink *string `json:"instagramLink,omitempty" validate:"omitempty,url"`
	XLink         *string `json:"xLink,omitempty" validate:"omitempty,url"`
}

// PatchFromInput converts a full representation into a patch covering
// every field.
func PatchFromInput(in Input) Patch {
	country := in.Country
	if country == "" {
		country = DefaultCountry
	}
	return Patch{
		Name: &in.Name, Type: &in.Type, Description: &in.Description,
		PhotoURL: &in.PhotoURL, LogoURL: &in.LogoURL, CoverImageURL: &in.CoverImageURL,
		Email: &in.Email, Country: &country, Province: &in.Province, Canton: &in.Canton,
		District: &in.District, Address: &in.Address, WazeLink: &in.WazeLink,
		GoogleMapLink: &in.GoogleMapLink, FacebookLink: &in.FacebookLink,
		InstagramLink: &in.InstagramLink, XLink: &in.XLink,
	}
}

// DefaultCountry applies when a business is created without a country.
const DefaultCountry = "CR"

// columns maps JSON field names to business columns.
var columns = map[string]string{
	"name":          "name",
	"type":          "type",
	"description":   "description",
	"photoUrl":      "photo_url",
	"logoUrl":       "logo_url",
	"coverImageUrl": "cover_image_url",
	"email":         "email",
	"country":       "country",
	"province":      "province",
	"canton":        "canton",
	"district":      "district",
	"address":       "address",
	"wazeLink":      "waze_link",
	"googleMapLink": "google_map_link",
	"facebookLink":  "facebook_link",
	"instagramLink": "instagram_link",
	"xLink":         "x_link",
}

// imageFields are the fields holding blob URLs.
var imageFields = []string{"coverImageUrl", "logoUrl", "photoUrl"}

// Day is the opening window of one weekday, in minutes after midnight.
// Weekday follows time.Weekday: 0 is Sunday.
type Day struct {
	Weekday int  `json:"weekday" validate:"min=0,max=6"`
	Opening *int `json:"opening" validate:"omitempty,min=0,max=1439"`
	Closing *int `json:"closing" validate:"omitempty,min=0,max=1439"`
}

// Closed reports whether the venue does not open that day.
func (d Day) Closed() bool {
	return d.Opening == nil || d.Closing == nil
}

// Label is the Spanish weekday name.
func (d Day) Label() string {
	if d.Weekday < 0 || d.Weekday > 6 {
		return ""
	}
	return weekdayLabels[d.Weekday]
}

var weekdayLabels = [7]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

// ScheduleInput is the payload of PUT /api/business/{id}/schedule.
type ScheduleInput struct {
	Days []Day `json:"days" validate:"max=7,dive"`
}

// MenuItem is a product shown on the public page.
type MenuItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image,omitempty"`
	Price    decimal.Decimal `json:"price"`
	TypeName string          `json:"-"`
}

// MenuGroup lists the products of one product type.
type MenuGroup struct {
	Type  string     `json:"type"`
	Items []MenuItem `json:"items"`
}

// PrizeRow is a prize with one of its linked product names. A prize without
// products yields a single row with an empty ProductName.
type PrizeRow struct {
	PrizeID     int64
	Name        string
	Points      int
	ProductName string
}

// PrizeGroup is a prize keyed for display with its linked products.
type PrizeGroup struct {
	Key      string   `json:"key"`
	Points   int      `json:"points"`
	Name     string   `json:"name"`
	Products []string `json:"products"`
}

// FullInfo is everything the public business page shows.
type FullInfo struct {
	Business Business     `json:"business"`
	Slug     string       `json:"slug"`
	Schedule []Day        `json:"schedule"`
	Menu     []MenuGroup  `json:"menu"`
	Prizes   []PrizeGroup `json:"prizes"`
}

// DirectoryEntry is one card of the public business directory.
type DirectoryEntry struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	CoverImageURL string `json:"coverImageUrl"`
	Province      string `json:"province"`
	Canton        string `json:"canton"`
	District      string `json:"district"`
}
