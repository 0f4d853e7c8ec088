package remote

import "fmt"

// Subject layout of the data service:
//
//	store.query.<table>              request/reply, selectRequest → selectResponse
//	store.update.<table>            request/reply, updateRequest → updateResponse
//	store.changes.<table>.<ident>   server-push changeMessage per row change
//	auth.signup | auth.signin       request/reply, token pair on success
//	auth.refresh | auth.signout     request/reply
//
// All payloads are JSON.
const (
	subjectQueryPrefix   = "store.query."
	subjectUpdatePrefix  = "store.update."
	subjectChangesPrefix = "store.changes."

	subjectSignUp  = "auth.signup"
	subjectSignIn  = "auth.signin"
	subjectRefresh = "auth.refresh"
	subjectSignOut = "auth.signout"
)

func querySubject(table string) string {
	return subjectQueryPrefix + table
}

func updateSubject(table string) string {
	return subjectUpdatePrefix + table
}

func changesSubject(table string, identity any) string {
	return fmt.Sprintf("%s%s.%v", subjectChangesPrefix, table, identity)
}

type orderSpec struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

type selectRequest struct {
	Filters map[string]any `json:"filters"`
	Order   *orderSpec     `json:"order,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

type selectResponse struct {
	Rows  []Row  `json:"rows"`
	Error string `json:"error,omitempty"`
}

type updateRequest struct {
	Set     Row            `json:"set"`
	Filters map[string]any `json:"filters"`
}

type updateResponse struct {
	Row   Row    `json:"row"`
	Error string `json:"error,omitempty"`
}

type changeMessage struct {
	EventType string `json:"event_type"`
	NewRow    Row    `json:"new_row"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type signOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is shared by signup/signin/refresh. Identity and expiry are
// not repeated in the body; the client reads them from the access token
// claims.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error,omitempty"`
}

type ackResponse struct {
	Error string `json:"error,omitempty"`
}

func filtersToMap(filters []Filter) map[string]any {
	m := make(map[string]any, len(filters))
	for _, f := range filters {
		m[f.Column] = f.Value
	}
	return m
}
