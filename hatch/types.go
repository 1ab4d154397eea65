package hatch

import (
	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/internal/trip"
)

// Aliases so callers (cmd, API consumers) use one package for the domain
// vocabulary without reaching into internal packages.
type (
	WaterBody          = store.WaterBody
	ShopSource         = store.ShopSource
	SourceRef          = store.SourceRef
	FishingReport      = store.FishingReport
	FlyRecommendation  = store.FlyRecommendation
	RecommendationSet  = store.RecommendationSet
	TripWater          = trip.Water
	TripProgress       = trip.Progress
	TripRecommendation = trip.Recommendation
)
