package silo

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar day in the backend's YYYY-MM-DD wire form.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Timestamp parses the backend's datetime values, which omit the timezone.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format("2006-01-02T15:04:05") + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// Armazem is a warehouse. Estoque and GraoID are computed by the backend:
// current stock and, when the warehouse holds a single grain, its id.
type Armazem struct {
	ID         int64  `json:"id"`
	UsuarioID  int64  `json:"usuario_id"`
	Nome       string `json:"nome"`
	Capacidade int64  `json:"capacidade"`
	Estoque    int64  `json:"estoque"`
	GraoID     *int64 `json:"grao_id"`
}

// Ocupacao is the fill ratio in [0, 1].
func (a Armazem) Ocupacao() float64 {
	if a.Capacidade <= 0 {
		return 0
	}
	return float64(a.Estoque) / float64(a.Capacidade)
}

// ArmazemParams creates or patches a warehouse. Nil fields are omitted, so a
// patch only touches what is set.
type ArmazemParams struct {
	Nome       *string `json:"nome,omitempty"`
	Capacidade *int64  `json:"capacidade,omitempty"`
}

// Grao is a grain type from the fixed catalog.
type Grao struct {
	ID   int64  `json:"id"`
	Nome string `json:"nome"`
}

// Contrato is a sales contract.
type Contrato struct {
	ID                 int64  `json:"id"`
	UsuarioID          int64  `json:"usuario_id"`
	Empresa            string `json:"empresa"`
	GraoID             int64  `json:"grao_id"`
	GraoNome           string `json:"grao_nome"`
	Vencimento         Date   `json:"vencimento"`
	Valor              int64  `json:"valor"`
	DataPagamento      *Date  `json:"data_pagamento"`
	Quantidade         int64  `json:"quantidade"`
	QuantidadeRetirada int64  `json:"quantidade_retirada"`
}

type ContratoParams struct {
	Empresa       *string `json:"empresa,omitempty"`
	GraoID        *int64  `json:"grao_id,omitempty"`
	Vencimento    *Date   `json:"vencimento,omitempty"`
	Valor         *int64  `json:"valor,omitempty"`
	DataPagamento *Date   `json:"data_pagamento,omitempty"`
	Quantidade    *int64  `json:"quantidade,omitempty"`
}

// Adicao is an inbound stock movement (a truck delivering grain).
type Adicao struct {
	ID         int64      `json:"id"`
	UsuarioID  int64      `json:"usuario_id"`
	ArmazenID  int64      `json:"armazen_id"`
	GraoID     int64      `json:"grao_id"`
	GraoNome   string     `json:"grao_nome"`
	Quantidade int64      `json:"quantidade"`
	Placa      *string    `json:"placa"`
	Umidade    *int64     `json:"umidade"`
	Tara       *int64     `json:"tara"`
	PesoBruto  *int64     `json:"peso_bruto"`
	Desconto   *int64     `json:"desconto"`
	TalhaoID   *int64     `json:"talhao_id"`
	TalhaoNome string     `json:"talhao_nome"`
	CreatedAt  *Timestamp `json:"created_at"`
}

type AdicaoParams struct {
	ArmazenID  *int64  `json:"armazen_id,omitempty"`
	GraoID     *int64  `json:"grao_id,omitempty"`
	Quantidade *int64  `json:"quantidade,omitempty"`
	Placa      *string `json:"placa,omitempty"`
	Umidade    *int64  `json:"umidade,omitempty"`
	Tara       *int64  `json:"tara,omitempty"`
	PesoBruto  *int64  `json:"peso_bruto,omitempty"`
	Desconto   *int64  `json:"desconto,omitempty"`
	TalhaoID   *int64  `json:"talhao_id,omitempty"`
}

// Retirada is an outbound stock movement, optionally tied to a contract.
type Retirada struct {
	ID         int64      `json:"id"`
	UsuarioID  int64      `json:"usuario_id"`
	ArmazenID  int64      `json:"armazen_id"`
	GraoID     int64      `json:"grao_id"`
	GraoNome   string     `json:"grao_nome"`
	ContratoID *int64     `json:"contrato_id"`
	Placa      *string    `json:"placa"`
	Tara       *int64     `json:"tara"`
	PesoBruto  *int64     `json:"peso_bruto"`
	CreatedAt  *Timestamp `json:"created_at"`
}

type RetiradaParams struct {
	ArmazenID  *int64  `json:"armazen_id,omitempty"`
	GraoID     *int64  `json:"grao_id,omitempty"`
	ContratoID *int64  `json:"contrato_id,omitempty"`
	Placa      *string `json:"placa,omitempty"`
	Tara       *int64  `json:"tara,omitempty"`
	PesoBruto  *int64  `json:"peso_bruto,omitempty"`
}

// Ptr is a convenience for building Params literals.
func Ptr[T any](v T) *T { return &v }
