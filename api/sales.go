package api

import (
	"context"
	"encoding/json"
	"net/url"
)

type SalesAPI struct {
	requester
}

func (s *SalesAPI) crud() crud {
	return crud{s.requester, "/sales/"}
}

func (s *SalesAPI) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return s.crud().List(ctx, query)
}

func (s *SalesAPI) Get(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.crud().Get(ctx, id)
}

func (s *SalesAPI) Create(ctx context.Context, body any) (json.RawMessage, error) {
	return s.crud().Create(ctx, body)
}

func (s *SalesAPI) Today(ctx context.Context) (json.RawMessage, error) {
	return s.get(ctx, s.crud().action("today"), nil)
}

// Stats summarises the last n days; n <= 0 leaves the server default
func (s *SalesAPI) Stats(ctx context.Context, n int) (json.RawMessage, error) {
	return s.get(ctx, s.crud().action("stats"), optional("days", days(n)))
}

// DailyReport takes a YYYY-MM-DD date; empty means today on the server
func (s *SalesAPI) DailyReport(ctx context.Context, date string) (json.RawMessage, error) {
	return s.get(ctx, s.crud().action("daily_report"), optional("date", date))
}
