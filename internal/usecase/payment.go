package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/infra/bankapi"
)

const paymentsPath = "/payments"

// PaymentUsecase initiates and polls payment resources. Status transitions
// happen inside the partner bank and are only discoverable by polling; no
// retry or backoff happens here.
type PaymentUsecase struct {
	router Router
}

func NewPaymentUsecase(router Router) *PaymentUsecase {
	return &PaymentUsecase{router: router}
}

// Create forwards the payment payload verbatim, attaching the allow-listed
// consent and correlation headers the caller supplied.
func (uc *PaymentUsecase) Create(ctx context.Context, bank, clientID string, payload json.RawMessage, headers http.Header) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Payment.Create")
	defer span.End()

	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}

	var body any
	if len(payload) > 0 {
		body = payload
	}

	payment, err := uc.router.Request(ctx, bank, http.MethodPost, paymentsPath, bankapi.RequestOptions{
		Body:    body,
		Params:  params,
		Headers: allowHeaders(headers, domain.PaymentCreateHeaders),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "payment create failed"))
		return nil, err
	}
	return payment, nil
}

// Status polls a payment by id, forwarding only the interaction id.
func (uc *PaymentUsecase) Status(ctx context.Context, bank, paymentID string, headers http.Header) (json.RawMessage, error) {
	return uc.router.Request(ctx, bank, http.MethodGet, paymentsPath+"/"+url.PathEscape(paymentID), bankapi.RequestOptions{
		Headers: allowHeaders(headers, domain.PaymentStatusHeaders),
	})
}
