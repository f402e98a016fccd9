// Package handlers implements the HTTP handlers for the trade ledger API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quantlog/trade-ledger-backend/internal/api/response"
	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/validation"
)

// respondJSON sends a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	response.RespondJSON(w, status, data)
}

// decodeJSON decodes the request body into dst. On failure it writes a 400
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.RespondError(w, http.StatusBadRequest, "请求体格式错误", err.Error())
		return false
	}
	return true
}

// pathID extracts the {id} URL parameter as a positive integer. On failure it
// writes a 400 response and returns false.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(w, http.StatusBadRequest, "无效的ID", chi.URLParam(r, "id"))
		return 0, false
	}
	return id, true
}

// queryInt64 parses an optional integer query parameter, returning 0 when
// absent or malformed.
func queryInt64(q url.Values, key string) int64 {
	v, err := strconv.ParseInt(q.Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// respondServiceError maps a service-layer error to an HTTP status and a
// structured error payload. Unrecognized errors become 500s with a generic
// message so internals never leak verbatim as the headline.
func respondServiceError(w http.ResponseWriter, err error) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "验证失败",
			"fields": ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrTradeNotFound),
		errors.Is(err, apperrors.ErrDetailNotFound),
		errors.Is(err, apperrors.ErrStrategyNotFound),
		errors.Is(err, apperrors.ErrTagNotFound):
		response.RespondError(w, http.StatusNotFound, "资源不存在", err.Error())

	case errors.Is(err, apperrors.ErrStrategyDuplicate),
		errors.Is(err, apperrors.ErrStrategyHasTrades),
		errors.Is(err, apperrors.ErrTagDuplicate),
		errors.Is(err, apperrors.ErrTagInUse),
		errors.Is(err, apperrors.ErrTagPredefined):
		response.RespondError(w, http.StatusConflict, "操作冲突", err.Error())

	case errors.Is(err, apperrors.ErrInvalidConfirmation):
		response.RespondError(w, http.StatusForbidden, "确认码无效", err.Error())

	case errors.Is(err, apperrors.ErrTradeDeleted),
		errors.Is(err, apperrors.ErrTradeClosed),
		errors.Is(err, apperrors.ErrQuantityExceedsRemaining),
		errors.Is(err, apperrors.ErrInvalidDate),
		errors.Is(err, apperrors.ErrMissingRequiredField),
		errors.Is(err, apperrors.ErrDetailIDMissing),
		errors.Is(err, apperrors.ErrFieldNotAllowed),
		errors.Is(err, apperrors.ErrUnknownTable):
		response.RespondError(w, http.StatusBadRequest, "请求无效", err.Error())

	default:
		response.RespondError(w, http.StatusInternalServerError, "操作失败", err.Error())
	}
}
