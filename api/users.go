package api

import (
	"context"
	"encoding/json"
	"net/url"
)

type UsersAPI struct {
	requester
}

func (u *UsersAPI) crud() crud {
	return crud{u.requester, "/users/"}
}

func (u *UsersAPI) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return u.crud().List(ctx, query)
}

func (u *UsersAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return u.crud().Get(ctx, id)
}

func (u *UsersAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return u.crud().Create(ctx, body)
}

func (u *UsersAPI) Update(ctx context.Context, id int64, body any) (json.RawMessage, error) {
	return u.crud().Update(ctx, id, body)
}

func (u *UsersAPI) Delete(ctx context.Context, id int64) error {
	return u.crud().Delete(ctx, id)
}

func (u *UsersAPI) Stats(ctx context.Context) (json.RawMessage, error) {
	return u.get(ctx, u.crud().action("stats"), nil)
}
