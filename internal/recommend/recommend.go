// Package recommend suggests catalog habits from a user's health profile.
package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

type BMICategory string

const (
	Underweight BMICategory = "Underweight"
	Normal      BMICategory = "Normal"
	Overweight  BMICategory = "Overweight"
	Obese       BMICategory = "Obese"
)

type Risk string

const (
	RiskUnknown  Risk = "Unknown"
	RiskLow      Risk = "Low"
	RiskModerate Risk = "Moderate"
	RiskHigh     Risk = "High"
)

var ErrInvalidMeasurements = errors.New("height and weight must be positive")

type BMI struct {
	Value    float64     `json:"bmi"`
	Category BMICategory `json:"category"`
}

// CalculateBMI takes height in centimeters and weight in kilograms. The value
// is rounded to two decimals before it is categorized.
func CalculateBMI(heightCm, weightKg float64) (BMI, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return BMI{}, ErrInvalidMeasurements
	}

	meters := heightCm / 100
	value := math.Round(weightKg/(meters*meters)*100) / 100

	var category BMICategory
	switch {
	case value < 18.5:
		category = Underweight
	case value < 25:
		category = Normal
	case value < 30:
		category = Overweight
	default:
		category = Obese
	}

	return BMI{Value: value, Category: category}, nil
}

func HealthRisk(bmi float64, age int) Risk {
	if bmi <= 0 {
		return RiskUnknown
	}

	risk := RiskLow
	switch {
	case bmi < 18.5:
		risk = RiskModerate
	case bmi >= 30:
		risk = RiskHigh
	case bmi >= 25:
		risk = RiskModerate
	}

	if age > 60 && (bmi < 18.5 || bmi >= 30) {
		risk = RiskHigh
	}

	return risk
}

type CatalogHabit struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	RecommendedFor  []string `json:"recommended_for"`
	Criteria        []string `json:"criteria"`
	DurationMinutes int      `json:"duration_minutes"`
}

type Profile struct {
	Age          int         `json:"age"`
	BMI          float64     `json:"bmi"`
	BMICategory  BMICategory `json:"bmi_category"`
	HealthIssues []string    `json:"health_issues"`
}

type Recommendation struct {
	CatalogHabit
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Match scores every catalog habit against the profile and keeps the ones
// with a positive score, best first. Ties are broken by name.
func Match(p Profile, catalog []CatalogHabit) []Recommendation {
	out := []Recommendation{}

	for _, h := range catalog {
		rec := Recommendation{CatalogHabit: h, Reasons: []string{}}
		add := func(points int, reason string) {
			rec.Score += points
			rec.Reasons = append(rec.Reasons, reason)
		}

		for _, issue := range p.HealthIssues {
			issue = strings.TrimSpace(issue)
			if issue == "" {
				continue
			}
			if anyContains(h.RecommendedFor, issue) {
				add(10, "Recommended for "+issue)
			}
			if anyContains(h.Criteria, issue) {
				add(5, "Helpful for managing "+issue)
			}
		}

		if p.BMICategory != "" {
			if anyContains(h.RecommendedFor, string(p.BMICategory)) {
				add(8, fmt.Sprintf("Suitable for %s BMI", p.BMICategory))
			}

			switch p.BMICategory {
			case Overweight, Obese:
				if h.Category == "Exercise" || anyContains(h.Criteria, "weight loss") {
					add(7, "Helps with weight management")
				}
			case Underweight:
				if anyContains(h.Criteria, "weight gain", "nutrition") {
					add(7, "Supports healthy weight gain")
				}
			}
		}

		if p.Age > 50 && anyContains(h.Criteria, "senior", "bone health", "flexibility") {
			add(6, "Age-appropriate activity")
		}
		if p.Age > 0 && p.Age < 30 && anyContains(h.Criteria, "energy", "fitness") {
			add(4, "Builds healthy habits early")
		}

		if hasExact(h.RecommendedFor, "general health") || hasExact(h.Criteria, "general health") {
			add(3, "Good for overall health")
		}

		if rec.Score > 0 {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})

	return out
}

// Top returns at most limit recommendations. A non-positive limit keeps all.
func Top(recs []Recommendation, limit int) []Recommendation {
	if limit <= 0 || limit >= len(recs) {
		return recs
	}
	return recs[:limit]
}

// anyContains reports whether some value contains one of the needles,
// ignoring case.
func anyContains(values []string, needles ...string) bool {
	for _, v := range values {
		v = strings.ToLower(v)
		for _, n := range needles {
			if strings.Contains(v, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}

func hasExact(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
