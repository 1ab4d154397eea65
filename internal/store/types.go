package store

// WaterBody is a named river, lake, stream, creek, or pond with fixed
// coordinates. Reference data: created by import, rarely mutated.
type WaterBody struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	WaterType string   `json:"water_type"` // river | lake | stream | creek | pond
	State     string   `json:"state"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Species   []string `json:"species"`
	CreatedAt int64    `json:"created_at"`
}

// ShopSource is a fly-shop website tracked as a candidate provider of
// fishing reports for one or more water bodies.
type ShopSource struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Website             string   `json:"website"`
	ReportsURL          string   `json:"reports_url"`
	Waters              []string `json:"waters"`
	Active              bool     `json:"active"`
	ConsecutiveFailures int      `json:"consecutive_failures"`
	LastSuccessAt       int64    `json:"last_success_at,omitempty"`
	CreatedAt           int64    `json:"created_at"`
	UpdatedAt           int64    `json:"updated_at"`
}

// SourceRef is a human-visible pointer to a contributing shop.
type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FishingReport is the persisted aggregate of one or more per-shop reports
// for a water body on a given report day.
type FishingReport struct {
	WaterBodyID   string            `json:"water_body_id"`
	ReportDate    string            `json:"report_date"` // YYYY-MM-DD bucket
	SourceName    string            `json:"source_name"` // shop name or "N fly shops"
	Sources       []SourceRef       `json:"sources"`
	Flies         []string          `json:"extracted_flies"`
	Conditions    map[string]string `json:"conditions"`
	Effectiveness string            `json:"effectiveness"`
	CreatedAt     int64             `json:"created_at"`
	ExpiresAt     int64             `json:"expires_at"`
}

// Fly type enum values.
const (
	FlyDry      = "dry"
	FlyNymph    = "nymph"
	FlyStreamer = "streamer"
	FlyWet      = "wet"
	FlyEmerger  = "emerger"
)

// FlyRecommendation is one fly suggested for a water body.
type FlyRecommendation struct {
	Name       string `json:"name"`
	FlyType    string `json:"fly_type"`
	Confidence int    `json:"confidence"` // 1-100
	Reasoning  string `json:"reasoning"`
	SizeRange  string `json:"size_range"`
	Technique  string `json:"technique"`
	ImageURL   string `json:"image_url,omitempty"`
}

// RecommendationSet is one recommendation_cache row: everything generated
// for a water body on a given day.
type RecommendationSet struct {
	WaterBodyID       string              `json:"water_body_id"`
	Date              string              `json:"date"` // YYYY-MM-DD
	Recommendations   []FlyRecommendation `json:"recommendations"`
	ConditionsSummary string              `json:"conditions_summary"`
	Report            *FishingReport      `json:"fishing_report,omitempty"`
	CreatedAt         int64               `json:"created_at"`
	ExpiresAt         int64               `json:"expires_at"`
}

// NormalizeFlyType maps free-form oracle output onto the fly type enum.
// Unknown values default to nymph, the workhorse category.
func NormalizeFlyType(s string) string {
	switch s {
	case FlyDry, FlyNymph, FlyStreamer, FlyWet, FlyEmerger:
		return s
	case "dry fly", "dries":
		return FlyDry
	case "wet fly":
		return FlyWet
	default:
		return FlyNymph
	}
}
