package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rituelsdebene/boutique/app/services"
	"github.com/rituelsdebene/boutique/pkg/bind"
	"github.com/rituelsdebene/boutique/pkg/logger"
	"github.com/rituelsdebene/boutique/pkg/middleware"
	"github.com/rituelsdebene/boutique/pkg/response"
)

var statusByKind = map[services.Kind]int{
	services.KindValidation:      http.StatusBadRequest,
	services.KindNotFound:        http.StatusNotFound,
	services.KindUnauthorized:    http.StatusUnauthorized,
	services.KindForbidden:       http.StatusForbidden,
	services.KindConflict:        http.StatusConflict,
	services.KindPaymentRequired: http.StatusPaymentRequired,
	services.KindUpstream:        http.StatusBadGateway,
	services.KindUpstreamTimeout: http.StatusGatewayTimeout,
	services.KindServer:          http.StatusInternalServerError,
}

// fail writes the response for a service error and logs it with its kind.
// 4xx responses carry the service message; 5xx ones a generic text.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	op := ""
	var se *services.Error
	if errors.As(err, &se) {
		op = se.Op
	}

	log := logger.WithCtx(r.Context())
	if status >= 500 {
		log.Error("request failed", "kind", string(kind), "op", op, "status", status, "error", err)
	} else {
		log.Info("request rejected", "kind", string(kind), "op", op, "status", status, "error", err)
	}

	var verrs *services.ValidationErrors
	if errors.As(err, &verrs) {
		response.ValidationError(w, verrs.Fields)
		return
	}

	switch {
	case status == http.StatusInternalServerError:
		response.ServerError(w)
	case status >= 500:
		msg := services.MessageOf(err)
		if msg == "" {
			msg = "Service externe indisponible"
		}
		response.Error(w, status, msg)
	default:
		msg := services.MessageOf(err)
		if msg == "" {
			msg = http.StatusText(status)
		}
		response.ErrorCode(w, status, services.CodeOf(err), msg)
	}
}

// decode binds the JSON body into dest. It writes the error response and
// returns false when the body is unusable or invalid.
func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	errs, err := bind.JSON(w, r, dest)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Requête invalide")
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

// userID reads the authenticated user. Routes guarded by rbac always have one.
func userID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := middleware.UserIDFromCtx(r)
	if !ok {
		response.Unauthorized(w, "")
		return 0, false
	}
	return id, true
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.Error(w, http.StatusBadRequest, "Identifiant invalide")
		return 0, false
	}
	return uint(id), true
}

// FlexibleID decodes an identifier sent either as a JSON number or as a
// numeric string.
type FlexibleID uint

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid identifier %q", s)
	}
	*f = FlexibleID(n)
	return nil
}

func (f FlexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint(f))
}
