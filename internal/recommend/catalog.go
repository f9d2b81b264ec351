package recommend

// Catalog returns the predefined habits recommendations are drawn from. The
// slice is freshly built on every call so callers may modify it.
func Catalog() []CatalogHabit {
	return []CatalogHabit{
		{
			Name:            "Walk 2km",
			Category:        "Exercise",
			Description:     "A brisk walk around the neighbourhood.",
			RecommendedFor:  []string{"general health", "Overweight", "heart health"},
			Criteria:        []string{"weight loss", "low impact"},
			DurationMinutes: 30,
		},
		{
			Name:            "Morning stretching",
			Category:        "Exercise",
			Description:     "Gentle full body stretches after waking up.",
			RecommendedFor:  []string{"back pain", "Normal"},
			Criteria:        []string{"flexibility", "senior"},
			DurationMinutes: 15,
		},
		{
			Name:            "Strength training",
			Category:        "Exercise",
			Description:     "Bodyweight or light weights session.",
			RecommendedFor:  []string{"Underweight", "Normal"},
			Criteria:        []string{"fitness", "weight gain", "bone health"},
			DurationMinutes: 40,
		},
		{
			Name:            "Eat leafy vegetables",
			Category:        "Diet",
			Description:     "Add a portion of spinach, kale or greens to a meal.",
			RecommendedFor:  []string{"eye problems", "general health"},
			Criteria:        []string{"eye care", "nutrition"},
			DurationMinutes: 10,
		},
		{
			Name:            "Low sugar diet",
			Category:        "Diet",
			Description:     "Skip sugary drinks and desserts for the day.",
			RecommendedFor:  []string{"diabetes", "Obese"},
			Criteria:        []string{"blood sugar", "weight loss"},
			DurationMinutes: 5,
		},
		{
			Name:            "Protein rich breakfast",
			Category:        "Diet",
			Description:     "Start the day with eggs, yogurt or legumes.",
			RecommendedFor:  []string{"Underweight"},
			Criteria:        []string{"nutrition", "energy"},
			DurationMinutes: 15,
		},
		{
			Name:            "Drink 8 glasses of water",
			Category:        "Health",
			Description:     "Keep a bottle nearby and refill it through the day.",
			RecommendedFor:  []string{"general health", "kidney health"},
			Criteria:        []string{"hydration", "energy"},
			DurationMinutes: 5,
		},
		{
			Name:            "20-20-20 eye breaks",
			Category:        "Health",
			Description:     "Every 20 minutes look 20 feet away for 20 seconds.",
			RecommendedFor:  []string{"eye problems", "screen strain"},
			Criteria:        []string{"eye care"},
			DurationMinutes: 5,
		},
		{
			Name:            "Blood pressure check",
			Category:        "Health",
			Description:     "Measure and log your blood pressure.",
			RecommendedFor:  []string{"hypertension", "heart health"},
			Criteria:        []string{"senior", "monitoring"},
			DurationMinutes: 5,
		},
		{
			Name:            "Read for 30 minutes",
			Category:        "Study",
			Description:     "Read a book away from screens.",
			RecommendedFor:  []string{"stress"},
			Criteria:        []string{"focus"},
			DurationMinutes: 30,
		},
		{
			Name:            "Sleep before 11pm",
			Category:        "Lifestyle",
			Description:     "Wind down early to get a full night of sleep.",
			RecommendedFor:  []string{"insomnia", "general health"},
			Criteria:        []string{"sleep", "energy"},
			DurationMinutes: 10,
		},
		{
			Name:            "Guided meditation",
			Category:        "Mental Health",
			Description:     "A short breathing or mindfulness session.",
			RecommendedFor:  []string{"stress", "anxiety", "hypertension"},
			Criteria:        []string{"relaxation", "focus"},
			DurationMinutes: 10,
		},
	}
}
