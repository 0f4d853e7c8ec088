package cli

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/profilehub/internal/client/models"
)

// buildStatsPatch turns a field name and raw value into a single-field patch.
func buildStatsPatch(field, value string) (models.UserStatsPatch, error) {
	var p models.UserStatsPatch

	if field == "rating" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p, fmt.Errorf("rating must be a number: %q", value)
		}
		p.Rating = &f
		return p, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return p, fmt.Errorf("%s must be an integer: %q", field, value)
	}
	switch field {
	case "portfolio_views":
		p.PortfolioViews = &n
	case "followers":
		p.Followers = &n
	case "loyalty_points":
		p.LoyaltyPoints = &n
	case "projects_completed":
		p.ProjectsCompleted = &n
	default:
		return p, fmt.Errorf("unknown field: %q", field)
	}
	return p, nil
}

// validateStatsPatch enforces the input-side ranges: rating in [0, 5], counts
// non-negative. This is deliberately the caller's responsibility — the write
// path itself persists whatever it is given.
func validateStatsPatch(p models.UserStatsPatch) error {
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return fmt.Errorf("rating must be between 0 and 5, got %v", *p.Rating)
	}
	for name, v := range map[string]*int{
		"portfolio_views":    p.PortfolioViews,
		"followers":          p.Followers,
		"loyalty_points":     p.LoyaltyPoints,
		"projects_completed": p.ProjectsCompleted,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, *v)
		}
	}
	return nil
}
