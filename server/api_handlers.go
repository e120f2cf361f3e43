package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/api"
	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/errors"
)

const maxBodyBytes = 1 << 20

// apiRequest is what a pass-through call needs from the incoming request
type apiRequest struct {
	*http.Request
	API     *api.Client
	Session *auth.Session
	Body    json.RawMessage // nil when the request carried no body
}

// body returns the JSON payload to forward, nil when there is none
func (r apiRequest) body() any {
	if r.Body == nil {
		return nil
	}
	return r.Body
}

func (r apiRequest) id() (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// intQuery parses an optional positive integer query parameter, 0 when absent
func (r apiRequest) intQuery(name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return n, nil
}

// apiCall performs one remote operation. A nil result answers 204.
type apiCall func(req apiRequest) (any, error)

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (s *Server) apiHandler(call apiCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		req := apiRequest{Request: r, API: session.API(), Session: session}

		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeJSONDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			if len(bytes.TrimSpace(data)) > 0 {
				if !json.Valid(data) {
					writeJSONDetail(w, http.StatusBadRequest, "Malformed JSON body")
					return
				}
				req.Body = data
			}
		}

		out, err := call(req)
		if err != nil {
			s.writeAPIError(w, r, err)
			return
		}
		if out == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeAPIError relays remote failures untouched; an expired session sends the browser to the login page
func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		statusErr *gateway.StatusError
		badReq    *badRequestError
	)
	switch {
	case errors.Is(err, errors.ErrSessionExpired):
		w.Header().Set("HX-Redirect", RouteLogin)
		writeJSONDetail(w, http.StatusUnauthorized, "Session expired, please log in again")
	case errors.As(err, &badReq):
		writeJSONDetail(w, http.StatusBadRequest, badReq.msg)
	case errors.As(err, &statusErr):
		if json.Valid(statusErr.Body) {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(statusErr.StatusCode)
		_, _ = w.Write(statusErr.Body)
	case errors.Is(err, context.Canceled):
		log.Debug().Str("path", r.URL.Path).Msg("Client went away before the remote API answered")
	default:
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Remote API call failed")
		writeJSONDetail(w, http.StatusBadGateway, "Remote API unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// rawOrNil turns an empty remote body into a 204
func rawOrNil(raw json.RawMessage, err error) (any, error) {
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil, err
	}
	return raw, nil
}

// Profile

func (s *Server) profileGet(req apiRequest) (any, error) {
	return req.API.Auth.Profile(req.Context())
}

func (s *Server) profileUpdate(req apiRequest) (any, error) {
	if _, err := req.API.Auth.UpdateProfile(req.Context(), req.body()); err != nil {
		return nil, err
	}
	if err := req.Session.ReloadProfile(req.Context()); err != nil {
		return nil, err
	}
	return req.Session.User(), nil
}

func (s *Server) passwordChange(req apiRequest) (any, error) {
	return rawOrNil(req.API.Auth.ChangePassword(req.Context(), req.body()))
}

// Users

func (s *Server) usersList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Users.List(req.Context(), req.URL.Query()))
}

func (s *Server) usersCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Users.Create(req.Context(), req.body()))
}

func (s *Server) register(req apiRequest) (any, error) {
	return rawOrNil(req.API.Auth.Register(req.Context(), req.body()))
}

func (s *Server) usersStats(req apiRequest) (any, error) {
	return rawOrNil(req.API.Users.Stats(req.Context()))
}

func (s *Server) usersGet(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Users.Get(req.Context(), id))
}

func (s *Server) usersUpdate(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Users.Update(req.Context(), id, req.body()))
}

func (s *Server) usersDelete(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return nil, req.API.Users.Delete(req.Context(), id)
}

// Drugs

func (s *Server) drugsList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.List(req.Context(), req.URL.Query()))
}

func (s *Server) drugsCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.Create(req.Context(), req.body()))
}

func (s *Server) drugsLowStock(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.LowStock(req.Context()))
}

func (s *Server) drugsOutOfStock(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.OutOfStock(req.Context()))
}

func (s *Server) drugsExpiringSoon(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.ExpiringSoon(req.Context()))
}

func (s *Server) drugsStats(req apiRequest) (any, error) {
	return rawOrNil(req.API.Drugs.Stats(req.Context()))
}

func (s *Server) drugsGet(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Drugs.Get(req.Context(), id))
}

func (s *Server) drugsUpdate(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Drugs.Update(req.Context(), id, req.body()))
}

func (s *Server) drugsDelete(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return nil, req.API.Drugs.Delete(req.Context(), id)
}

// Categories and manufacturers

func (s *Server) categoriesList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Categories.List(req.Context()))
}

func (s *Server) categoriesCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Categories.Create(req.Context(), req.body()))
}

func (s *Server) categoriesUpdate(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Categories.Update(req.Context(), id, req.body()))
}

func (s *Server) categoriesDelete(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return nil, req.API.Categories.Delete(req.Context(), id)
}

func (s *Server) manufacturersList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Manufacturers.List(req.Context()))
}

func (s *Server) manufacturersCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Manufacturers.Create(req.Context(), req.body()))
}

func (s *Server) manufacturersUpdate(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Manufacturers.Update(req.Context(), id, req.body()))
}

func (s *Server) manufacturersDelete(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return nil, req.API.Manufacturers.Delete(req.Context(), id)
}

// Stock transactions

func (s *Server) stockList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Stock.List(req.Context(), req.URL.Query()))
}

func (s *Server) stockCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Stock.Create(req.Context(), req.body()))
}

func (s *Server) stockByDrug(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Stock.ByDrug(req.Context(), id))
}

// Prescriptions

func (s *Server) prescriptionsList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Prescriptions.List(req.Context(), req.URL.Query()))
}

func (s *Server) prescriptionsCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Prescriptions.Create(req.Context(), req.body()))
}

func (s *Server) prescriptionsMine(req apiRequest) (any, error) {
	return rawOrNil(req.API.Prescriptions.Mine(req.Context()))
}

func (s *Server) prescriptionsGet(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Prescriptions.Get(req.Context(), id))
}

func (s *Server) prescriptionsUpdate(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Prescriptions.Update(req.Context(), id, req.body()))
}

func (s *Server) prescriptionsFill(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Prescriptions.Fill(req.Context(), id, req.body()))
}

func (s *Server) prescriptionsCancel(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Prescriptions.Cancel(req.Context(), id))
}

// Sales

func (s *Server) salesList(req apiRequest) (any, error) {
	return rawOrNil(req.API.Sales.List(req.Context(), req.URL.Query()))
}

func (s *Server) salesCreate(req apiRequest) (any, error) {
	return rawOrNil(req.API.Sales.Create(req.Context(), req.body()))
}

func (s *Server) salesToday(req apiRequest) (any, error) {
	return rawOrNil(req.API.Sales.Today(req.Context()))
}

func (s *Server) salesStats(req apiRequest) (any, error) {
	days, err := req.intQuery("days")
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Sales.Stats(req.Context(), days))
}

func (s *Server) salesDailyReport(req apiRequest) (any, error) {
	return rawOrNil(req.API.Sales.DailyReport(req.Context(), req.URL.Query().Get("date")))
}

func (s *Server) salesGet(req apiRequest) (any, error) {
	id, err := req.id()
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Sales.Get(req.Context(), id))
}

// Reports

func (s *Server) reportsDashboard(req apiRequest) (any, error) {
	return req.API.Reports.Dashboard(req.Context())
}

func (s *Server) reportsInventory(req apiRequest) (any, error) {
	return rawOrNil(req.API.Reports.Inventory(req.Context(), req.URL.Query().Get("type")))
}

func (s *Server) reportsSales(req apiRequest) (any, error) {
	days, err := req.intQuery("days")
	if err != nil {
		return nil, err
	}
	return rawOrNil(req.API.Reports.Sales(req.Context(), days))
}
