package domain

import "math"

// AQI categories for PM2.5 (US EPA breakpoints, µg/m³).
const (
	AQIGood               = "good"
	AQIModerate           = "moderate"
	AQIUnhealthySensitive = "unhealthy_sensitive"
	AQIUnhealthy          = "unhealthy"
	AQIVeryUnhealthy      = "very_unhealthy"
	AQIHazardous          = "hazardous"
	AQIUnknown            = "unknown"
)

// WHOGuidelinePM25 is the WHO annual mean guideline for PM2.5 in µg/m³.
const WHOGuidelinePM25 = 15.0

// AQICategories returns the categories from cleanest to worst.
func AQICategories() []string {
	return []string{AQIGood, AQIModerate, AQIUnhealthySensitive, AQIUnhealthy, AQIVeryUnhealthy, AQIHazardous}
}

// ClassifyPM25 maps a PM2.5 concentration to its AQI category.
func ClassifyPM25(pm25 float64) string {
	switch {
	case math.IsNaN(pm25):
		return AQIUnknown
	case pm25 <= 12:
		return AQIGood
	case pm25 <= 35.4:
		return AQIModerate
	case pm25 <= 55.4:
		return AQIUnhealthySensitive
	case pm25 <= 150.4:
		return AQIUnhealthy
	case pm25 <= 250.4:
		return AQIVeryUnhealthy
	default:
		return AQIHazardous
	}
}
