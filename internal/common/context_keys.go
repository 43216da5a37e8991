// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// AccountIDKey is the context key for storing the authenticated account's ID
	AccountIDKey = "accountID"
	// AccountEmailKey is the context key for storing the authenticated account's email
	AccountEmailKey = "accountEmail"
	// AccountPlanKey is the context key for storing the authenticated account's plan code
	AccountPlanKey = "accountPlan"
)
