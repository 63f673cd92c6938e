package middleware

import (
	"net/http"

	"github.com/dealerworks/dms-backend/api/responses"
	"github.com/dealerworks/dms-backend/pkg/enums"
	pkgerrors "github.com/dealerworks/dms-backend/pkg/errors"
	"github.com/dealerworks/dms-backend/pkg/logger"
)

// RequireRoles admits requests whose staff role is one of allowed. Admins
// are always admitted.
func RequireRoles(logg *logger.Logger, allowed ...enums.StaffRole) func(http.Handler) http.Handler {
	set := make(map[enums.StaffRole]struct{}, len(allowed)+1)
	set[enums.StaffRoleAdmin] = struct{}{}
	for _, role := range allowed {
		set[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.StaffRole(RoleFromContext(r.Context()))
			if _, ok := set[role]; !ok || !role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
