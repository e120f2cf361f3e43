package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

type DrugsAPI struct {
	requester
}

func (d *DrugsAPI) crud() crud {
	return crud{d.requester, "/drugs/"}
}

func (d *DrugsAPI) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return d.crud().List(ctx, query)
}

func (d *DrugsAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return d.crud().Get(ctx, id)
}

func (d *DrugsAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return d.crud().Create(ctx, body)
}

func (d *DrugsAPI) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return d.crud().Update(ctx, id, body)
}

func (d *DrugsAPI) Delete(ctx context.Context, id int64) error {
	return d.crud().Delete(ctx, id)
}

func (d *DrugsAPI) LowStock(ctx context.Context) (json.RawMessage, error) {
	return d.get(ctx, d.crud().action("low_stock"), nil)
}

func (d *DrugsAPI) OutOfStock(ctx context.Context) (json.RawMessage, error) {
	return d.get(ctx, d.crud().action("out_of_stock"), nil)
}

func (d *DrugsAPI) ExpiringSoon(ctx context.Context) (json.RawMessage, error) {
	return d.get(ctx, d.crud().action("expiring_soon"), nil)
}

func (d *DrugsAPI) Stats(ctx context.Context) (json.RawMessage, error) {
	return d.get(ctx, d.crud().action("stats"), nil)
}

// CategoriesAPI has no item lookup on the remote side, only list/create/update/delete
type CategoriesAPI struct {
	c crud
}

func (a *CategoriesAPI) List(ctx context.Context) (json.RawMessage, error) {
	return a.c.List(ctx, nil)
}

func (a *CategoriesAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return a.c.Create(ctx, body)
}

func (a *CategoriesAPI) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return a.c.Update(ctx, id, body)
}

func (a *CategoriesAPI) Delete(ctx context.Context, id int64) error {
	return a.c.Delete(ctx, id)
}

type ManufacturersAPI struct {
	c crud
}

func (a *ManufacturersAPI) List(ctx context.Context) (json.RawMessage, error) {
	return a.c.List(ctx, nil)
}

func (a *ManufacturersAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return a.c.Create(ctx, body)
}

func (a *ManufacturersAPI) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return a.c.Update(ctx, id, body)
}

func (a *ManufacturersAPI) Delete(ctx context.Context, id int64) error {
	return a.c.Delete(ctx, id)
}

// StockAPI covers stock transactions (purchases, adjustments, returns)
type StockAPI struct {
	requester
}

func (s *StockAPI) crud() crud {
	return crud{s.requester, "/stock-transactions/"}
}

func (s *StockAPI) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return s.crud().List(ctx, query)
}

func (s *StockAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return s.crud().Create(ctx, body)
}

func (s *StockAPI) ByDrug(ctx context.Context, drugID int64) (json.RawMessage, error) {
	return s.get(ctx, s.crud().action("by_drug"), url.Values{"drug_id": {strconv.FormatInt(drugID, 10)}})
}
