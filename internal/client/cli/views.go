package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/profilehub/internal/common"
)

// Whoami prints the current identity, or a hint when nobody is signed in.
func (a *App) Whoami(ctx context.Context) error {
	u := a.session.CurrentUser()
	if u == nil {
		printlnFn("Not signed in.")
		return nil
	}
	printlnFn(fmt.Sprintf("%s <%s>", u.Name, u.Email))
	printlnFn(fmt.Sprintf("  tier: %s  account type: %s  role: %s  verified: %v",
		u.Tier, u.AccountType, u.Role, u.IsVerified))
	return nil
}

// ShowStats prints the stats mirror. Zeros render as zeros whether the row is
// absent, unreachable, or genuinely all-zero; the mirror does not distinguish.
func (a *App) ShowStats(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	stats, loading, _ := a.stats.Snapshot()
	if loading {
		printlnFn("(loading)")
	}
	printlnFn(fmt.Sprintf("portfolio views:    %d", stats.PortfolioViews))
	printlnFn(fmt.Sprintf("followers:          %d", stats.Followers))
	printlnFn(fmt.Sprintf("rating:             %.1f", stats.Rating))
	printlnFn(fmt.Sprintf("loyalty points:     %d", stats.LoyaltyPoints))
	printlnFn(fmt.Sprintf("projects completed: %d", stats.ProjectsCompleted))
	return nil
}

// SetStats prompts for one stats field and its new value, validates the
// input, and writes it. The printed result comes from the server-confirmed
// row, not from the entered value.
func (a *App) SetStats(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}

	field, err := getSimpleText(a.reader,
		"Field (portfolio_views|followers|rating|loyalty_points|projects_completed)", os.Stdout)
	if err != nil {
		return err
	}
	value, err := getSimpleText(a.reader, "Value", os.Stdout)
	if err != nil {
		return err
	}

	patch, err := buildStatsPatch(field, value)
	if err != nil {
		return err
	}
	if err := validateStatsPatch(patch); err != nil {
		return err
	}

	confirmed, err := a.writer.Update(ctx, patch)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Saved. followers=%d rating=%.1f views=%d",
		confirmed.Followers, confirmed.Rating, confirmed.PortfolioViews))
	return nil
}

// ShowActivity prints the recent-activity mirror, newest first.
func (a *App) ShowActivity(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	items, loading, _ := a.activity.Snapshot()
	if loading {
		printlnFn("(loading)")
	}
	if len(items) == 0 {
		printlnFn("No recent activity.")
		return nil
	}
	for _, it := range items {
		printlnFn(fmt.Sprintf("%s  [%s] %s", it.CreatedAt.Format("2006-01-02 15:04"), it.ActionType, it.Action))
	}
	return nil
}

// ShowChallenges prints the active-challenges mirror.
func (a *App) ShowChallenges(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	items, loading, _ := a.challenges.Snapshot()
	if loading {
		printlnFn("(loading)")
	}
	if len(items) == 0 {
		printlnFn("No active challenges.")
		return nil
	}
	for _, c := range items {
		printlnFn(fmt.Sprintf("%s: %d%% (reward: %d pts)", c.Title, c.Progress, c.Reward))
	}
	return nil
}

// SwitchRole toggles the creator/member pair on the current profile.
func (a *App) SwitchRole(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrorUnauthorized
	}
	if err := a.session.SwitchRole(ctx); err != nil {
		return err
	}
	if u := a.session.CurrentUser(); u != nil {
		printlnFn("Now a", string(u.AccountType))
	}
	return nil
}
