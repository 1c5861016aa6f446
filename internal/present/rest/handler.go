package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/present/rest/presenter"
	"github.com/multibank/gateway/internal/usecase"
)

type Handler struct {
	registry *domain.Registry
	consent  *usecase.ConsentUsecase
	payment  *usecase.PaymentUsecase
	product  *usecase.ProductUsecase
}

func NewHandler(
	registry *domain.Registry,
	consent *usecase.ConsentUsecase,
	payment *usecase.PaymentUsecase,
	product *usecase.ProductUsecase,
) *Handler {
	return &Handler{
		registry: registry,
		consent:  consent,
		payment:  payment,
		product:  product,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/banks", h.handleBanks)

	e.POST("/consents/accounts", h.handleCreateAccountConsent)
	e.GET("/consents/accounts/:consentId", h.handleGetAccountConsent)
	e.DELETE("/consents/accounts/:consentId", h.handleRevokeAccountConsent)

	e.POST("/consents/payments", h.handleCreatePaymentConsent)
	e.GET("/consents/payments/:consentId", h.handleGetPaymentConsent)
	e.DELETE("/consents/payments/:consentId", h.handleRevokePaymentConsent)

	e.POST("/consents/product-agreements", h.handleCreateAgreementConsent)
	e.GET("/consents/product-agreements/:consentId", h.handleGetAgreementConsent)
	e.DELETE("/consents/product-agreements/:consentId", h.handleRevokeAgreementConsent)

	e.POST("/payments", h.handleCreatePayment)
	e.GET("/payments/:paymentId", h.handlePaymentStatus)

	e.GET("/products", h.handleListProducts)
	e.GET("/products/agreements", h.handleListAgreements)
	e.POST("/products/agreements", h.handleOpenAgreement)
	e.GET("/products/agreements/:agreementId", h.handleGetAgreement)
	e.DELETE("/products/agreements/:agreementId", h.handleCloseAgreement)
	e.GET("/products/:productId", h.handleGetProduct)
}

// bank returns the ?bank= query parameter, falling back to the first
// registered bank for single-bank operations.
func (h *Handler) bank(c echo.Context) string {
	if bank := c.QueryParam("bank"); bank != "" {
		return bank
	}
	return h.registry.Default().ID
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleBanks(c echo.Context) error {
	return presenter.OK(c, echo.Map{"banks": h.registry.Banks()})
}

// --- consents ---

func (h *Handler) handleCreateAccountConsent(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.AccountConsentRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	consent, err := h.consent.CreateAccountConsent(ctx, h.bank(c), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleGetAccountConsent(c echo.Context) error {
	ctx := c.Request().Context()

	consent, err := h.consent.GetAccountConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleRevokeAccountConsent(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.consent.RevokeAccountConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleCreatePaymentConsent(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.PaymentConsentRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	consent, err := h.consent.CreatePaymentConsent(ctx, h.bank(c), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleGetPaymentConsent(c echo.Context) error {
	ctx := c.Request().Context()

	consent, err := h.consent.GetPaymentConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleRevokePaymentConsent(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.consent.RevokePaymentConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

func (h *Handler) handleCreateAgreementConsent(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.ProductAgreementConsentRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	consent, err := h.consent.CreateProductAgreementConsent(ctx, h.bank(c), c.QueryParam("client_id"), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleGetAgreementConsent(c echo.Context) error {
	ctx := c.Request().Context()

	consent, err := h.consent.GetProductAgreementConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, consent)
}

func (h *Handler) handleRevokeAgreementConsent(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.consent.RevokeProductAgreementConsent(ctx, h.bank(c), c.Param("consentId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}

// --- payments ---

func (h *Handler) handleCreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return presenter.BadRequestMessage(c, "body must be valid JSON")
	}

	payment, err := h.payment.Create(ctx, h.bank(c), c.QueryParam("client_id"), payload, c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusCreated, payment)
}

func (h *Handler) handlePaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()

	payment, err := h.payment.Status(ctx, h.bank(c), c.Param("paymentId"), c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, payment)
}

// --- products ---

func (h *Handler) handleListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	// empty bank means fan-out across the whole registry
	catalog, err := h.product.ListProducts(ctx, c.QueryParam("bank"), c.QueryParam("product_type"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, catalog)
}

func (h *Handler) handleGetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.product.GetProduct(ctx, h.bank(c), c.Param("productId"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, product)
}

func (h *Handler) handleListAgreements(c echo.Context) error {
	ctx := c.Request().Context()

	agreements, err := h.product.ListAgreements(ctx, c.QueryParam("bank"), c.QueryParam("client_id"), c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, agreements)
}

func (h *Handler) handleOpenAgreement(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.OpenAgreementRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	agreement, err := h.product.OpenAgreement(ctx, h.bank(c), c.QueryParam("client_id"), req, c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, agreement)
}

func (h *Handler) handleGetAgreement(c echo.Context) error {
	ctx := c.Request().Context()

	agreement, err := h.product.GetAgreement(ctx, h.bank(c), c.Param("agreementId"), c.QueryParam("client_id"), c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Raw(c, http.StatusOK, agreement)
}

func (h *Handler) handleCloseAgreement(c echo.Context) error {
	ctx := c.Request().Context()

	var req usecase.CloseAgreementRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	err := h.product.CloseAgreement(ctx, h.bank(c), c.Param("agreementId"), c.QueryParam("client_id"), req, c.Request().Header)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.NoContent(c)
}
