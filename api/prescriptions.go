package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type PrescriptionsAPI struct {
	requester
}

func (p *PrescriptionsAPI) crud() crud {
	return crud{p.requester, "/prescriptions/"}
}

func (p *PrescriptionsAPI) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return p.crud().List(ctx, query)
}

func (p *PrescriptionsAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return p.crud().Get(ctx, id)
}

func (p *PrescriptionsAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return p.crud().Create(ctx, body)
}

func (p *PrescriptionsAPI) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return p.crud().Update(ctx, id, body)
}

// Fill dispenses items of a prescription; body carries the filled quantities
func (p *PrescriptionsAPI) Fill(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return p.post(ctx, fmt.Sprintf("/prescriptions/%d/fill/", id), body)
}

func (p *PrescriptionsAPI) Cancel(ctx context.Context, id int64) (json.RawMessage, error) {
	return p.post(ctx, fmt.Sprintf("/prescriptions/%d/cancel/", id), nil)
}

// Mine lists the prescriptions of the calling user (patient or issuing doctor)
func (p *PrescriptionsAPI) Mine(ctx context.Context) (json.RawMessage, error) {
	return p.get(ctx, p.crud().action("my_prescriptions"), nil)
}
