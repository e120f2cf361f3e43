package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/medix-console/gateway"
)

// Client groups the remote API facades. Facades are stateless and share one Doer.
type Client struct {
	Auth          *AuthAPI
	Users         *UsersAPI
	Drugs         *DrugsAPI
	Categories    *CategoriesAPI
	Manufacturers *ManufacturersAPI
	Prescriptions *PrescriptionsAPI
	Sales         *SalesAPI
	Reports       *ReportsAPI
	Stock         *StockAPI
}

func New(doer gateway.Doer) *Client {
	r := requester{doer: doer}
	return &Client{
		Auth:          &AuthAPI{r},
		Users:         &UsersAPI{r},
		Drugs:         &DrugsAPI{r},
		Categories:    &CategoriesAPI{crud{r, "/categories/"}},
		Manufacturers: &ManufacturersAPI{crud{r, "/manufacturers/"}},
		Prescriptions: &PrescriptionsAPI{r},
		Sales:         &SalesAPI{r},
		Reports:       &ReportsAPI{r},
		Stock:         &StockAPI{r},
	}
}

type requester struct {
	doer gateway.Doer
}

func (r requester) raw(ctx context.Context, req gateway.Request) (json.RawMessage, error) {
	var out json.RawMessage
	if err := r.doer.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r requester) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return r.raw(ctx, gateway.Request{Method: http.MethodGet, Path: path, Query: query})
}

func (r requester) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.raw(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body})
}

func (r requester) patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.raw(ctx, gateway.Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (r requester) delete(ctx context.Context, path string) error {
	return r.doer.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: path}, nil)
}

// crud covers the list/create/update/delete endpoints of a router-registered resource
type crud struct {
	requester
	base string
}

func (c crud) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, c.base, query)
}

func (c crud) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return c.get(ctx, c.item(id), nil)
}

func (c crud) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return c.post(ctx, c.base, body)
}

func (c crud) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return c.patch(ctx, c.item(id), body)
}

func (c crud) Delete(ctx context.Context, id int64) error {
	return c.delete(ctx, c.item(id))
}

func (c crud) item(id int64) string {
	return fmt.Sprintf("%s%d/", c.base, id)
}

func (c crud) action(name string) string {
	return c.base + name + "/"
}

// optional builds a query from the non-empty pairs of kv
func optional(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return nil
	}
	return q
}

func days(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
