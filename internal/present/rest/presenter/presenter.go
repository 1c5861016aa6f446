package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multibank/gateway/internal/domain"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type partnerResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Created wraps a successful creation response.
func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

// NoContent signals a successful revocation.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Raw relays a partner body verbatim.
func Raw(c echo.Context, status int, body json.RawMessage) error {
	if len(body) == 0 {
		return c.NoContent(status)
	}
	return c.JSONBlob(status, body)
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// Error maps the gateway's error taxonomy onto upstream responses. Partner
// errors are relayed with the partner's own status, message, and body, never
// replaced by a generic 500.
func Error(c echo.Context, err error) error {
	var validation domain.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: validation.Fields})
	}

	var unknown domain.UnknownBankError
	if errors.As(err, &unknown) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: unknown.Error()})
	}

	var auth domain.BankAuthError
	if errors.As(err, &auth) {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: auth.Error()})
	}

	var partner domain.PartnerError
	if errors.As(err, &partner) {
		return c.JSON(partner.StatusCode, partnerResponse{Message: partner.Message, Data: partner.Data})
	}

	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
