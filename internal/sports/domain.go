// Package sports manages the sports and tournaments users forecast on.
package sports

import "time"

// DateLayout is the wire format of tournament dates.
const DateLayout = "2006-01-02"

// Sport is a discipline such as football or basketball.
type Sport struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tournament is a competition of one sport.
type Tournament struct {
	ID        int64     `json:"id"`
	SportID   int64     `json:"idSport"`
	SportName string    `json:"sportName"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Country   string    `json:"country"`
	StartsOn  string    `json:"startsOn"`
	EndsOn    string    `json:"endsOn"`
	CreatedAt time.Time `json:"createdAt"`
}

// SportInput is the payload of POST /api/sport.
type SportInput struct {
	Name  string `json:"name" validate:"required,min=2,max=60"`
	Image string `json:"image,omitempty" validate:"omitempty,url"`
}

// SportPatch is a partial sport update.
type SportPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=60"`
	Image *string `json:"image,omitempty" validate:"omitempty,url"`
}

// TournamentInput is the payload of POST /api/tournament.
type TournamentInput struct {
	SportID  int64  `json:"idSport" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Image    string `json:"image,omitempty" validate:"omitempty,url"`
	Country  string `json:"country,omitempty" validate:"omitempty,max=60"`
	StartsOn string `json:"startsOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndsOn   string `json:"endsOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// TournamentPatch is a partial tournament update.
type TournamentPatch struct {
	SportID  *int64  `json:"idSport,omitempty" validate:"omitempty,gt=0"`
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Image    *string `json:"image,omitempty" validate:"omitempty,url"`
	Country  *string `json:"country,omitempty" validate:"omitempty,max=60"`
	StartsOn *string `json:"startsOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndsOn   *string `json:"endsOn,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

var sportColumns = map[string]string{
	"name":  "name",
	"image": "image",
}

var tournamentColumns = map[string]string{
	"idSport":  "sport_id",
	"name":     "name",
	"image":    "image",
	"country":  "country",
	"startsOn": "starts_on",
	"endsOn":   "ends_on",
}
