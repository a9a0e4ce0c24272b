package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EventDetail son los campos de un evento a insertar en el ICS.
// Los opcionales vacíos (o nil) no se envían.
type EventDetail struct {
	Start        string
	End          string
	Matiere      string
	TypeCours    string
	InfosSup     string
	ClassroomStr string
	UserID       *int
	PromoStr     string
}

// form serializa el evento como application/x-www-form-urlencoded.
func (e EventDetail) form() url.Values {
	f := url.Values{}
	f.Set("start", e.Start)
	f.Set("end", e.End)
	f.Set("matiere", e.Matiere)
	f.Set("type_cours", e.TypeCours)
	if e.InfosSup != "" {
		f.Set("infos_sup", e.InfosSup)
	}
	if e.ClassroomStr != "" {
		f.Set("classroom_str", e.ClassroomStr)
	}
	if e.UserID != nil {
		f.Set("user_id", strconv.Itoa(*e.UserID))
	}
	if e.PromoStr != "" {
		f.Set("promo_str", e.PromoStr)
	}
	return f
}

// EventFilter criterios de /ics/event_filter. Los campos cero no se envían.
type EventFilter struct {
	Start       string
	End         string
	Matiere     string
	TypeCours   string
	InfosSup    string
	ClassroomID int
	UserID      int
	PromoID     int
}

func (f EventFilter) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	setInt := func(k string, v int) {
		if v > 0 {
			q.Set(k, strconv.Itoa(v))
		}
	}
	set("start", f.Start)
	set("end", f.End)
	set("matiere", f.Matiere)
	set("type_cours", f.TypeCours)
	set("infos_sup", f.InfosSup)
	setInt("classroom_id", f.ClassroomID)
	setInt("user_id", f.UserID)
	setInt("promo_id", f.PromoID)
	return q
}

// GetUserCalendars lista los calendarios (promos) disponibles (GET /calendars/available).
func (c *Client) GetUserCalendars(ctx context.Context, token string) ([]string, error) {
	var out []string
	err := c.doJSON(ctx, request{
		op:     "GetUserCalendars",
		method: http.MethodGet,
		path:   "/calendars/available",
		token:  token,
	}, &out)
	return out, err
}

// GetCalendars lista calendarios con filtros libres (GET /calendars).
func (c *Client) GetCalendars(ctx context.Context, params url.Values) ([]map[string]any, error) {
	var out []map[string]any
	err := c.doJSON(ctx, request{
		op:     "GetCalendars",
		method: http.MethodGet,
		path:   "/calendars",
		query:  params,
	}, &out)
	return out, err
}

// GetEvents lista los eventos de un calendario entre start y end (opcionales).
func (c *Client) GetEvents(ctx context.Context, calendarID, start, end string) ([]map[string]any, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	var out []map[string]any
	err := c.doJSON(ctx, request{
		op:     "GetEvents",
		method: http.MethodGet,
		path:   "/calendars/" + url.PathEscape(calendarID) + "/events",
		query:  q,
	}, &out)
	return out, err
}

// FilterEvents busca eventos por criterios (GET /ics/event_filter).
func (c *Client) FilterEvents(ctx context.Context, f EventFilter) ([]map[string]any, error) {
	var out []map[string]any
	err := c.doJSON(ctx, request{
		op:     "FilterEvents",
		method: http.MethodGet,
		path:   "/ics/event_filter",
		query:  f.query(),
	}, &out)
	return out, err
}

// GetICS descarga el ICS de una promo (GET /ics/:promo_id). Lleva un
// timestamp y headers no-cache para saltear cualquier copia intermedia.
func (c *Client) GetICS(ctx context.Context, promoID string) ([]byte, error) {
	q := url.Values{}
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))
	h := noCacheHeaders()
	h.Set("Accept", "text/calendar, */*")
	return c.do(ctx, request{
		op:     "GetICS",
		method: http.MethodGet,
		path:   "/ics/" + url.PathEscape(promoID),
		query:  q,
		header: h,
	})
}

// AddEventToICS inserta un evento (POST /ics/insert, form-encoded).
func (c *Client) AddEventToICS(ctx context.Context, e EventDetail) (map[string]any, error) {
	var out map[string]any
	err := c.doJSON(ctx, request{
		op:          "AddEventToICS",
		method:      http.MethodPost,
		path:        "/ics/insert",
		body:        strings.NewReader(e.form().Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &out)
	return out, err
}

// DeleteEvent borra un evento por UID.
//
// El backend expone el borrado como GET /ics/delete?uid_str=<id>. Se mantiene
// el contrato aunque un GET que muta no es seguro ni idempotente: no debe
// reintentarse ni usarse detrás de caches o prefetch.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) (map[string]any, error) {
	q := url.Values{}
	q.Set("uid_str", eventID)
	var out map[string]any
	err := c.doJSON(ctx, request{
		op:     "DeleteEvent",
		method: http.MethodGet,
		path:   "/ics/delete",
		query:  q,
	}, &out)
	return out, err
}

// GetClassrooms lista las salas (GET /classrooms/all).
func (c *Client) GetClassrooms(ctx context.Context) ([]string, error) {
	var out []string
	err := c.doJSON(ctx, request{
		op:     "GetClassrooms",
		method: http.MethodGet,
		path:   "/classrooms/all",
	}, &out)
	return out, err
}

// GetClassroomsDetail devuelve capacidad y tipo por sala (GET /classrooms/all/detail).
func (c *Client) GetClassroomsDetail(ctx context.Context) (map[string]map[string]any, error) {
	var out map[string]map[string]any
	err := c.doJSON(ctx, request{
		op:     "GetClassroomsDetail",
		method: http.MethodGet,
		path:   "/classrooms/all/detail",
	}, &out)
	return out, err
}

// GetCSV exporta los eventos de una promo en CSV (binario).
func (c *Client) GetCSV(ctx context.Context, promoID string) ([]byte, error) {
	q := url.Values{}
	q.Set("promo_str", promoID)
	h := noCacheHeaders()
	h.Set("Accept", "text/csv, */*")
	return c.do(ctx, request{
		op:     "GetCSV",
		method: http.MethodGet,
		path:   "/csv/",
		query:  q,
		header: h,
	})
}

// Version devuelve la versión del backend (GET /version).
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, request{
		op:     "Version",
		method: http.MethodGet,
		path:   "/version",
	}, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// Healthcheck consulta GET /status/healthcheck.
func (c *Client) Healthcheck(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	r := request{
		op:     "Healthcheck",
		method: http.MethodGet,
		path:   "/status/healthcheck",
	}
	if err := c.doJSON(ctx, r, &out); err != nil {
		return err
	}
	if !strings.EqualFold(out.Status, "ok") {
		return ErrServer.at(r.op, r.method, r.path, http.StatusOK).WithDetail("status " + out.Status)
	}
	return nil
}
