package validators

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/go-chi/chi/v5"
)

type sampleBody struct {
	Item map[string]any `json:"item" validate:"required"`
	Note string         `json:"note" validate:"max=5"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item":{"product":"p"}}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Item["product"] != "p" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyKeepsNumberPrecision(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item":{"sku":12345678901234567891}}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sku, ok := body.Item["sku"].(json.Number)
	if !ok || sku.String() != "12345678901234567891" {
		t.Fatalf("expected exact json.Number, got %#v", body.Item["sku"])
	}
}

func TestDecodeJSONBodyErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"malformed":     `{"item":`,
		"unknown field": `{"item":{},"extra":1}`,
		"missing item":  `{"note":"x"}`,
		"note too long": `{"item":{"a":1},"note":"toolong"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body sampleBody
			err := DecodeJSONBody(req, &body)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPathParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("itemId", value)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := PathParam(withParam(" 42 "), "itemId", 10)
	if err != nil || got != "42" {
		t.Fatalf("expected 42, got %q (%v)", got, err)
	}
	if _, err := PathParam(withParam(" "), "itemId", 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty param, got %v", err)
	}
	if _, err := PathParam(withParam("12345678901"), "itemId", 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for long param, got %v", err)
	}
}
