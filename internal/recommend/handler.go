package recommend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nadmax/habivance/internal/httputil"
	"github.com/nadmax/habivance/internal/logger"
)

type Request struct {
	HeightCm     float64  `json:"height_cm"`
	WeightKg     float64  `json:"weight_kg"`
	Age          int      `json:"age"`
	HealthIssues []string `json:"health_issues"`
}

type Result struct {
	Profile         Profile          `json:"profile"`
	HealthRisk      Risk             `json:"health_risk"`
	Recommendations []Recommendation `json:"recommendations"`
	Total           int              `json:"total"`
}

type Handler struct {
	catalog []CatalogHabit
}

// NewHandler serves recommendations out of catalog, or the built in catalog
// when it is nil.
func NewHandler(catalog []CatalogHabit) *Handler {
	if catalog == nil {
		catalog = Catalog()
	}
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/recommendations", h.Recommend)
}

// Recommend answers POST /api/recommendations[?limit=n]. Height and weight
// are optional; without them the match runs on age and health issues only.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := httputil.UserID(r); !ok {
		httputil.WriteJSONError(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Age < 0 {
		httputil.WriteJSONError(w, "age must not be negative", http.StatusBadRequest)
		return
	}

	result, err := h.recommend(req, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidMeasurements) {
			httputil.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error("failed to build recommendations", "err", err)
		httputil.WriteJSONError(w, "Failed to retrieve recommendations", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Recommendations retrieved successfully", result)
}

func (h *Handler) recommend(req Request, limit int) (*Result, error) {
	profile := Profile{Age: req.Age, HealthIssues: req.HealthIssues}

	if req.HeightCm != 0 || req.WeightKg != 0 {
		bmi, err := CalculateBMI(req.HeightCm, req.WeightKg)
		if err != nil {
			return nil, err
		}
		profile.BMI = bmi.Value
		profile.BMICategory = bmi.Category
	}

	recs := Match(profile, h.catalog)

	return &Result{
		Profile:         profile,
		HealthRisk:      HealthRisk(profile.BMI, profile.Age),
		Recommendations: Top(recs, limit),
		Total:           len(recs),
	}, nil
}
