package silo

import (
	"context"
	"net/http"
)

// ListGraos returns the grain catalog. The catalog is fixed server-side;
// there are no create or update calls.
func (c *Client) ListGraos(ctx context.Context) ([]Grao, error) {
	var out []Grao
	if err := c.do(ctx, http.MethodGet, "/graos", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
