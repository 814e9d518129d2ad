package silo

import (
	"context"
	"fmt"
	"net/http"
)

// ListContratos returns the caller's contracts with withdrawn totals.
func (c *Client) ListContratos(ctx context.Context, opts ListOptions) ([]Contrato, error) {
	var out []Contrato
	if err := c.do(ctx, http.MethodGet, "/contratos", opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetContrato fetches one contract.
func (c *Client) GetContrato(ctx context.Context, id int64) (Contrato, error) {
	var out Contrato
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/contratos/%d", id), nil, nil, &out); err != nil {
		return Contrato{}, err
	}
	return out, nil
}

// CreateContrato records a contract. Empresa, GraoID, Vencimento, Valor,
// and Quantidade are required.
func (c *Client) CreateContrato(ctx context.Context, params ContratoParams) (Contrato, error) {
	var out Contrato
	if err := c.do(ctx, http.MethodPost, "/contratos", nil, params, &out); err != nil {
		return Contrato{}, err
	}
	return out, nil
}

// UpdateContrato patches the set fields of a contract.
func (c *Client) UpdateContrato(ctx context.Context, id int64, params ContratoParams) (Contrato, error) {
	var out Contrato
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/contratos/%d", id), nil, params, &out); err != nil {
		return Contrato{}, err
	}
	return out, nil
}

// DeleteContrato soft-deletes a contract.
func (c *Client) DeleteContrato(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/contratos/%d", id), nil, nil, nil)
}
