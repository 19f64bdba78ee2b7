package model

// Remote API response types. Field names follow the Yelp Fusion v3 JSON schema.

// Business is a search result summary.
type Business struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ImageURL     string      `json:"image_url"`
	IsClosed     bool        `json:"is_closed"`
	URL          string      `json:"url"`
	ReviewCount  int         `json:"review_count"`
	Categories   []Category  `json:"categories"`
	Rating       float64     `json:"rating"`
	Coordinates  Coordinates `json:"coordinates"`
	Transactions []string    `json:"transactions"`
	Price        string      `json:"price"`
	Location     *Location   `json:"location"`
	Phone        string      `json:"phone"`
	DisplayPhone string      `json:"display_phone"`
	Distance     float64     `json:"distance"` // meters from the search point
}

// BusinessDetail is the full record returned by the business lookup endpoint.
type BusinessDetail struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ImageURL     string      `json:"image_url"`
	IsClaimed    bool        `json:"is_claimed"`
	IsClosed     bool        `json:"is_closed"`
	URL          string      `json:"url"`
	Phone        string      `json:"phone"`
	DisplayPhone string      `json:"display_phone"`
	ReviewCount  int         `json:"review_count"`
	Categories   []Category  `json:"categories"`
	Rating       float64     `json:"rating"`
	Location     *Location   `json:"location"`
	Coordinates  Coordinates `json:"coordinates"`
	Photos       []string    `json:"photos"`
	Price        string      `json:"price"`
	Hours        []Hours     `json:"hours"`
	Transactions []string    `json:"transactions"`
}

// OpenNow reports whether any hours block marks the business as open.
func (d BusinessDetail) OpenNow() bool {
	for _, h := range d.Hours {
		if h.IsOpenNow {
			return true
		}
	}
	return false
}

type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// Coordinates can be absent for some businesses; nil means unknown.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type Location struct {
	Address1       string   `json:"address1"`
	Address2       string   `json:"address2"`
	Address3       string   `json:"address3"`
	City           string   `json:"city"`
	ZipCode        string   `json:"zip_code"`
	Country        string   `json:"country"`
	State          string   `json:"state"`
	DisplayAddress []string `json:"display_address"`
}

type Hours struct {
	Open      []OpenHours `json:"open"`
	HoursType string      `json:"hours_type"`
	IsOpenNow bool        `json:"is_open_now"`
}

// OpenHours is one opening window. Start and End use 24h "HHMM"; Day is 0=Monday.
type OpenHours struct {
	IsOvernight bool   `json:"is_overnight"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Day         int    `json:"day"`
}

type Review struct {
	ID          string `json:"id"`
	Rating      int    `json:"rating"`
	User        User   `json:"user"`
	Text        string `json:"text"`
	TimeCreated string `json:"time_created"`
	URL         string `json:"url"`
}

type User struct {
	ID         string `json:"id"`
	ProfileURL string `json:"profile_url"`
	ImageURL   string `json:"image_url"`
	Name       string `json:"name"`
}

// SearchResponse is the payload of the business search endpoint.
type SearchResponse struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
	Region     Region     `json:"region"`
}

type Region struct {
	Center Coordinates `json:"center"`
}

// ReviewsResponse is the payload of the reviews endpoint.
type ReviewsResponse struct {
	Reviews           []Review `json:"reviews"`
	Total             int      `json:"total"`
	PossibleLanguages []string `json:"possible_languages"`
}
