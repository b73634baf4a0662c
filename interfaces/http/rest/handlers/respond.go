package handlers

import (
	"fmt"
	"net/http"

	"lattice/pkg/auth"
	"lattice/pkg/common"
	"lattice/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies before JSON decoding
const maxBodyBytes = 1 << 20

// currentUser pulls the authenticated user out of the request context.
// Writes a 401 and returns false when authentication middleware did not run.
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Authentication required")
		return nil, false
	}
	return user, true
}

// pathID extracts a path parameter that must be a UUID. Writes a 400 and
// returns false otherwise, so no storage is touched for malformed IDs.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := chi.URLParam(r, name)
	if _, err := uuid.Parse(value); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
			fmt.Sprintf("%s must be a valid UUID", name))
		return "", false
	}
	return value, true
}

// decodeBody parses a size-limited JSON request body into v. Writes a 400
// and returns false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := common.ParseJSONBody(r, v, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
			"Invalid request body: "+err.Error())
		return false
	}
	return true
}

// validBody validates a decoded request DTO against its struct tags.
// Writes a 400 and returns false on violations.
func validBody(w http.ResponseWriter, v interface{}) bool {
	if err := utils.ValidateStruct(v); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError, err.Error())
		return false
	}
	return true
}

// respondList sends a listing with pagination metadata. The limit and
// offset are the effective values after domain clamping, not the raw
// request parameters.
func respondList(w http.ResponseWriter, r *http.Request, data interface{}, limit, offset, total int) {
	common.RespondWithMeta(w, http.StatusOK, data, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Timestamp:  utils.NowRFC3339(),
		Pagination: common.BuildPageInfo(limit, offset, total),
	})
}
