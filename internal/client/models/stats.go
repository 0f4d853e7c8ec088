package models

// UserStats is the per-user stats row. Exactly one row exists per identity.
// The all-zero value doubles as the presentation fallback when the row is
// absent or unreachable; it is never written back implicitly.
type UserStats struct {
	PortfolioViews    int     `json:"portfolio_views"`
	Followers         int     `json:"followers"`
	Rating            float64 `json:"rating"`
	LoyaltyPoints     int     `json:"loyalty_points"`
	ProjectsCompleted int     `json:"projects_completed"`
}

// UserStatsFromRow decodes a user_stats row, filling absent fields with zero.
func UserStatsFromRow(row map[string]any) UserStats {
	return UserStats{
		PortfolioViews:    intVal(row, "portfolio_views"),
		Followers:         intVal(row, "followers"),
		Rating:            floatVal(row, "rating"),
		LoyaltyPoints:     intVal(row, "loyalty_points"),
		ProjectsCompleted: intVal(row, "projects_completed"),
	}
}

// UserStatsPatch is a partial stats update. Nil fields are left untouched.
// Range validation (rating in [0,5], counts >= 0) is the caller's job; the
// patch itself carries values verbatim.
type UserStatsPatch struct {
	PortfolioViews    *int     `json:"portfolio_views,omitempty"`
	Followers         *int     `json:"followers,omitempty"`
	Rating            *float64 `json:"rating,omitempty"`
	LoyaltyPoints     *int     `json:"loyalty_points,omitempty"`
	ProjectsCompleted *int     `json:"projects_completed,omitempty"`
}

// Fields returns the set columns as an update map. An empty patch yields an
// empty map.
func (p UserStatsPatch) Fields() map[string]any {
	m := map[string]any{}
	if p.PortfolioViews != nil {
		m["portfolio_views"] = *p.PortfolioViews
	}
	if p.Followers != nil {
		m["followers"] = *p.Followers
	}
	if p.Rating != nil {
		m["rating"] = *p.Rating
	}
	if p.LoyaltyPoints != nil {
		m["loyalty_points"] = *p.LoyaltyPoints
	}
	if p.ProjectsCompleted != nil {
		m["projects_completed"] = *p.ProjectsCompleted
	}
	return m
}
