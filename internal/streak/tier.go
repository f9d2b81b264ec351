package streak

type Tier struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

var milestones = map[int]string{
	7:   "One Week",
	30:  "One Month",
	100: "100 Days",
	365: "One Year",
}

func TierFor(n int) Tier {
	switch {
	case n <= 0:
		return Tier{Name: "Start", Message: "Begin your journey!"}
	case n < 7:
		return Tier{Name: "Building", Message: "Keep it up!"}
	case n < 30:
		return Tier{Name: "Strong", Message: "Great progress!"}
	case n < 100:
		return Tier{Name: "Champion", Message: "You're unstoppable!"}
	default:
		return Tier{Name: "Legend", Message: "Amazing dedication!"}
	}
}

func IsMilestone(n int) bool {
	_, ok := milestones[n]
	return ok
}

// MilestoneLabel returns the human label for a milestone streak, or "".
func MilestoneLabel(n int) string {
	return milestones[n]
}
