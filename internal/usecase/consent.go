package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/infra/bankapi"
)

var tracer = otel.Tracer("usecase")

const (
	accountConsentsPath          = "/account-consents"
	paymentConsentsPath          = "/payment-consents"
	productAgreementConsentsPath = "/product-agreement-consents"
)

// Defaults applied to account consent creation when the caller omits them.
var defaultAccountPermissions = []string{"ReadAccountsDetail", "ReadBalances", "ReadTransactionsDetail"}

const (
	defaultAccountConsentReason = "Account aggregation for multibank app"
	defaultRequestingBankName   = "MultiBank App"
	defaultPaymentConsentType   = "single_use"
)

// ConsentUsecase proxies the three consent families to partner banks. The
// partner bank owns every consent's lifecycle; nothing is cached locally.
type ConsentUsecase struct {
	router Router
	teamID string
}

func NewConsentUsecase(router Router, teamID string) *ConsentUsecase {
	return &ConsentUsecase{router: router, teamID: teamID}
}

// AccountConsentRequest is the caller's body for account consent creation.
type AccountConsentRequest struct {
	ClientID           string   `json:"client_id"`
	Permissions        []string `json:"permissions"`
	Reason             string   `json:"reason"`
	RequestingBank     string   `json:"requesting_bank,omitempty"`
	RequestingBankName string   `json:"requesting_bank_name"`
}

func (uc *ConsentUsecase) CreateAccountConsent(ctx context.Context, bank string, req AccountConsentRequest) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Consent.CreateAccount")
	defer span.End()

	if req.ClientID == "" {
		return nil, domain.ValidationError{Fields: map[string]string{"client_id": "required"}}
	}

	if len(req.Permissions) == 0 {
		req.Permissions = defaultAccountPermissions
	}
	if req.Reason == "" {
		req.Reason = defaultAccountConsentReason
	}
	if req.RequestingBankName == "" {
		req.RequestingBankName = defaultRequestingBankName
	}
	req.RequestingBank = uc.teamID

	consent, err := uc.router.Request(ctx, bank, http.MethodPost, accountConsentsPath+"/request", bankapi.RequestOptions{
		Body:    req,
		Headers: uc.attributionHeader(),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "account consent create failed"))
		return nil, err
	}
	return consent, nil
}

func (uc *ConsentUsecase) GetAccountConsent(ctx context.Context, bank, consentID string) (json.RawMessage, error) {
	return uc.router.Request(ctx, bank, http.MethodGet, accountConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
}

func (uc *ConsentUsecase) RevokeAccountConsent(ctx context.Context, bank, consentID string) error {
	_, err := uc.router.Request(ctx, bank, http.MethodDelete, accountConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
	return err
}

// PaymentConsentRequest is the caller's body for payment consent creation.
// Optional fields are forwarded only when supplied, never defaulted.
type PaymentConsentRequest struct {
	ClientID                string   `json:"client_id"`
	ConsentType             string   `json:"consent_type"`
	DebtorAccount           string   `json:"debtor_account"`
	Amount                  *float64 `json:"amount,omitempty"`
	Currency                string   `json:"currency,omitempty"`
	CreditorAccount         string   `json:"creditor_account,omitempty"`
	CreditorName            string   `json:"creditor_name,omitempty"`
	Reference               string   `json:"reference,omitempty"`
	MaxUses                 *int     `json:"max_uses,omitempty"`
	MaxAmountPerPayment     *float64 `json:"max_amount_per_payment,omitempty"`
	MaxTotalAmount          *float64 `json:"max_total_amount,omitempty"`
	AllowedCreditorAccounts []string `json:"allowed_creditor_accounts,omitempty"`
	VrpMaxIndividualAmount  *float64 `json:"vrp_max_individual_amount,omitempty"`
	VrpDailyLimit           *float64 `json:"vrp_daily_limit,omitempty"`
	VrpMonthlyLimit         *float64 `json:"vrp_monthly_limit,omitempty"`
	ValidUntil              string   `json:"valid_until,omitempty"`
	RequestingBank          string   `json:"requesting_bank,omitempty"`
}

func (uc *ConsentUsecase) CreatePaymentConsent(ctx context.Context, bank string, req PaymentConsentRequest) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Consent.CreatePayment")
	defer span.End()

	fields := map[string]string{}
	if req.ClientID == "" {
		fields["client_id"] = "required"
	}
	if req.DebtorAccount == "" {
		fields["debtor_account"] = "required"
	}
	if len(fields) > 0 {
		return nil, domain.ValidationError{Fields: fields}
	}

	if req.ConsentType == "" {
		req.ConsentType = defaultPaymentConsentType
	}
	req.RequestingBank = uc.teamID

	consent, err := uc.router.Request(ctx, bank, http.MethodPost, paymentConsentsPath+"/request", bankapi.RequestOptions{
		Body:    req,
		Headers: uc.attributionHeader(),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "payment consent create failed"))
		return nil, err
	}
	return consent, nil
}

func (uc *ConsentUsecase) GetPaymentConsent(ctx context.Context, bank, consentID string) (json.RawMessage, error) {
	return uc.router.Request(ctx, bank, http.MethodGet, paymentConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
}

func (uc *ConsentUsecase) RevokePaymentConsent(ctx context.Context, bank, consentID string) error {
	_, err := uc.router.Request(ctx, bank, http.MethodDelete, paymentConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
	return err
}

// ProductAgreementConsentRequest is the caller's body for product-agreement
// consent creation. The tristate permission flags are forwarded only when
// the caller set them.
type ProductAgreementConsentRequest struct {
	RequestingBank         string   `json:"requesting_bank,omitempty"`
	ClientID               string   `json:"client_id,omitempty"`
	ReadProductAgreements  *bool    `json:"read_product_agreements,omitempty"`
	OpenProductAgreements  *bool    `json:"open_product_agreements,omitempty"`
	CloseProductAgreements *bool    `json:"close_product_agreements,omitempty"`
	AllowedProductTypes    []string `json:"allowed_product_types,omitempty"`
	MaxAmount              *float64 `json:"max_amount,omitempty"`
	ValidUntil             string   `json:"valid_until,omitempty"`
	Reason                 string   `json:"reason,omitempty"`
}

// CreateProductAgreementConsent forwards the consent request; clientID may
// come from the query string and overrides the body's client_id.
func (uc *ConsentUsecase) CreateProductAgreementConsent(ctx context.Context, bank, clientID string, req ProductAgreementConsentRequest) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Consent.CreateProductAgreement")
	defer span.End()

	if clientID != "" {
		req.ClientID = clientID
	}
	if req.ClientID == "" {
		return nil, domain.ValidationError{Fields: map[string]string{"client_id": "required"}}
	}
	if req.RequestingBank == "" {
		req.RequestingBank = uc.teamID
	}

	params := url.Values{}
	params.Set("client_id", req.ClientID)

	consent, err := uc.router.Request(ctx, bank, http.MethodPost, productAgreementConsentsPath+"/request", bankapi.RequestOptions{
		Body:   req,
		Params: params,
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "product agreement consent create failed"))
		return nil, err
	}
	return consent, nil
}

func (uc *ConsentUsecase) GetProductAgreementConsent(ctx context.Context, bank, consentID string) (json.RawMessage, error) {
	return uc.router.Request(ctx, bank, http.MethodGet, productAgreementConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
}

func (uc *ConsentUsecase) RevokeProductAgreementConsent(ctx context.Context, bank, consentID string) error {
	_, err := uc.router.Request(ctx, bank, http.MethodDelete, productAgreementConsentsPath+"/"+url.PathEscape(consentID), bankapi.RequestOptions{})
	return err
}

func (uc *ConsentUsecase) attributionHeader() http.Header {
	h := http.Header{}
	h.Set(domain.RequestingBankHeader, uc.teamID)
	return h
}
