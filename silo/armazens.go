package silo

import (
	"context"
	"fmt"
	"net/http"
)

// ListArmazens returns the caller's warehouses with computed stock.
func (c *Client) ListArmazens(ctx context.Context, opts ListOptions) ([]Armazem, error) {
	var out []Armazem
	if err := c.do(ctx, http.MethodGet, "/armazens", opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateArmazem registers a warehouse. Nome and Capacidade are required.
func (c *Client) CreateArmazem(ctx context.Context, params ArmazemParams) (Armazem, error) {
	var out Armazem
	if err := c.do(ctx, http.MethodPost, "/armazens", nil, params, &out); err != nil {
		return Armazem{}, err
	}
	return out, nil
}

// UpdateArmazem patches the set fields of a warehouse.
func (c *Client) UpdateArmazem(ctx context.Context, id int64, params ArmazemParams) (Armazem, error) {
	var out Armazem
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/armazens/%d", id), nil, params, &out); err != nil {
		return Armazem{}, err
	}
	return out, nil
}

// DeleteArmazem soft-deletes a warehouse.
func (c *Client) DeleteArmazem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/armazens/%d", id), nil, nil, nil)
}
