package silo

import (
	"context"
	"fmt"
	"net/http"
)

// ListAdicoes returns inbound movements, newest first.
func (c *Client) ListAdicoes(ctx context.Context, opts ListOptions) ([]Adicao, error) {
	var out []Adicao
	if err := c.do(ctx, http.MethodGet, "/adicoes", opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAdicao fetches one delivery.
func (c *Client) GetAdicao(ctx context.Context, id int64) (Adicao, error) {
	var out Adicao
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/adicoes/%d", id), nil, nil, &out); err != nil {
		return Adicao{}, err
	}
	return out, nil
}

// CreateAdicao records a delivery. ArmazenID, GraoID, and Quantidade are
// required; the backend rejects deliveries that would overfill the
// warehouse or mix grain types.
func (c *Client) CreateAdicao(ctx context.Context, params AdicaoParams) (Adicao, error) {
	var out Adicao
	if err := c.do(ctx, http.MethodPost, "/adicoes", nil, params, &out); err != nil {
		return Adicao{}, err
	}
	return out, nil
}

// UpdateAdicao patches the set fields of a delivery.
func (c *Client) UpdateAdicao(ctx context.Context, id int64, params AdicaoParams) (Adicao, error) {
	var out Adicao
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/adicoes/%d", id), nil, params, &out); err != nil {
		return Adicao{}, err
	}
	return out, nil
}

// DeleteAdicao soft-deletes a delivery.
func (c *Client) DeleteAdicao(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/adicoes/%d", id), nil, nil, nil)
}

// ListRetiradas returns outbound movements, newest first.
func (c *Client) ListRetiradas(ctx context.Context, opts ListOptions) ([]Retirada, error) {
	var out []Retirada
	if err := c.do(ctx, http.MethodGet, "/retiradas", opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRetirada fetches one withdrawal.
func (c *Client) GetRetirada(ctx context.Context, id int64) (Retirada, error) {
	var out Retirada
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/retiradas/%d", id), nil, nil, &out); err != nil {
		return Retirada{}, err
	}
	return out, nil
}

// CreateRetirada records a withdrawal, optionally against a contract.
func (c *Client) CreateRetirada(ctx context.Context, params RetiradaParams) (Retirada, error) {
	var out Retirada
	if err := c.do(ctx, http.MethodPost, "/retiradas", nil, params, &out); err != nil {
		return Retirada{}, err
	}
	return out, nil
}

// UpdateRetirada patches the set fields of a withdrawal.
func (c *Client) UpdateRetirada(ctx context.Context, id int64, params RetiradaParams) (Retirada, error) {
	var out Retirada
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/retiradas/%d", id), nil, params, &out); err != nil {
		return Retirada{}, err
	}
	return out, nil
}

// DeleteRetirada soft-deletes a withdrawal.
func (c *Client) DeleteRetirada(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/retiradas/%d", id), nil, nil, nil)
}
