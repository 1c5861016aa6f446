package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/infra/bankapi"
	"github.com/multibank/gateway/internal/utils"
)

const (
	productsPath   = "/products"
	agreementsPath = "/product-agreements"
)

// ProductUsecase fans catalog and product-agreement queries out across the
// registered banks. A failing partner never fails the whole request: its
// contribution is dropped, logged, and reported as diagnostic metadata.
type ProductUsecase struct {
	registry *domain.Registry
	router   Router
}

func NewProductUsecase(registry *domain.Registry, router Router) *ProductUsecase {
	return &ProductUsecase{registry: registry, router: router}
}

// BankFailure records one partner's isolated fan-out failure.
type BankFailure struct {
	Bank  string `json:"bank"`
	Error string `json:"error"`
}

// Catalog is a merged product listing, in registry order, with each item
// tagged with its source bank.
type Catalog struct {
	Products []map[string]any `json:"products"`
	Failures []BankFailure    `json:"failures,omitempty"`
}

// Agreements is the product-agreement counterpart of Catalog.
type Agreements struct {
	Agreements []map[string]any `json:"agreements"`
	Failures   []BankFailure    `json:"failures,omitempty"`
}

// ListProducts queries one bank, or every registered bank when bank is
// empty. A named bank must exist in the registry; past that check, per-bank
// failures are isolated.
func (uc *ProductUsecase) ListProducts(ctx context.Context, bank, productType string) (*Catalog, error) {
	ctx, span := tracer.Start(ctx, "Product.ListProducts")
	defer span.End()

	banks, err := uc.targetBanks(bank)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if productType != "" {
		params.Set("product_type", productType)
	}

	items, failures := uc.fanOut(ctx, banks, productsPath, bankapi.RequestOptions{Params: params}, "products",
		func(item map[string]any, b domain.Bank) {
			item["bank"] = b.ID
			item["bankName"] = strings.ToUpper(b.ID)
		})

	return &Catalog{Products: items, Failures: failures}, nil
}

// GetProduct fetches one product's details from one bank.
func (uc *ProductUsecase) GetProduct(ctx context.Context, bank, productID string) (json.RawMessage, error) {
	body, err := uc.router.Request(ctx, bank, http.MethodGet, productsPath+"/"+url.PathEscape(productID), bankapi.RequestOptions{})
	if err != nil {
		return nil, err
	}
	return tagObject(body, bank, true)
}

// ListAgreements queries product agreements from one bank or all of them,
// forwarding the consent correlation headers.
func (uc *ProductUsecase) ListAgreements(ctx context.Context, bank, clientID string, headers http.Header) (*Agreements, error) {
	ctx, span := tracer.Start(ctx, "Product.ListAgreements")
	defer span.End()

	banks, err := uc.targetBanks(bank)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}

	opts := bankapi.RequestOptions{
		Params:  params,
		Headers: allowHeaders(headers, domain.AgreementHeaders),
	}

	items, failures := uc.fanOut(ctx, banks, agreementsPath, opts, "agreements",
		func(item map[string]any, b domain.Bank) {
			item["bank"] = b.ID
		})

	return &Agreements{Agreements: items, Failures: failures}, nil
}

// OpenAgreementRequest is the caller's body for opening an agreement.
type OpenAgreementRequest struct {
	ProductID       string   `json:"product_id"`
	Amount          *float64 `json:"amount,omitempty"`
	TermMonths      *int     `json:"term_months,omitempty"`
	SourceAccountID string   `json:"source_account_id,omitempty"`
}

// OpenAgreement opens a product agreement. The agreement state machine is
// the partner's; illegal transitions surface as the partner's own error.
func (uc *ProductUsecase) OpenAgreement(ctx context.Context, bank, clientID string, req OpenAgreementRequest, headers http.Header) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Product.OpenAgreement")
	defer span.End()

	if req.ProductID == "" {
		return nil, domain.ValidationError{Fields: map[string]string{"product_id": "required"}}
	}

	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}

	body, err := uc.router.Request(ctx, bank, http.MethodPost, agreementsPath, bankapi.RequestOptions{
		Body:    req,
		Params:  params,
		Headers: allowHeaders(headers, domain.AgreementHeaders),
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "agreement open failed"))
		return nil, err
	}
	return tagObject(body, bank, false)
}

// GetAgreement fetches one agreement's details.
func (uc *ProductUsecase) GetAgreement(ctx context.Context, bank, agreementID, clientID string, headers http.Header) (json.RawMessage, error) {
	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}

	body, err := uc.router.Request(ctx, bank, http.MethodGet, agreementsPath+"/"+url.PathEscape(agreementID), bankapi.RequestOptions{
		Params:  params,
		Headers: allowHeaders(headers, domain.AgreementHeaders),
	})
	if err != nil {
		return nil, err
	}
	return tagObject(body, bank, false)
}

// CloseAgreementRequest optionally names where and how much to repay on
// close. It is forwarded only when the caller supplied either field.
type CloseAgreementRequest struct {
	RepaymentAccountID string   `json:"repayment_account_id,omitempty"`
	RepaymentAmount    *float64 `json:"repayment_amount,omitempty"`
}

// CloseAgreement closes a product agreement.
func (uc *ProductUsecase) CloseAgreement(ctx context.Context, bank, agreementID, clientID string, req CloseAgreementRequest, headers http.Header) error {
	ctx, span := tracer.Start(ctx, "Product.CloseAgreement")
	defer span.End()

	params := url.Values{}
	if clientID != "" {
		params.Set("client_id", clientID)
	}

	opts := bankapi.RequestOptions{
		Params:  params,
		Headers: allowHeaders(headers, domain.AgreementHeaders),
	}
	if req.RepaymentAccountID != "" || req.RepaymentAmount != nil {
		opts.Body = req
	}

	_, err := uc.router.Request(ctx, bank, http.MethodDelete, agreementsPath+"/"+url.PathEscape(agreementID), opts)
	if err != nil {
		span.RecordError(errors.Wrap(err, "agreement close failed"))
		return err
	}
	return nil
}

func (uc *ProductUsecase) targetBanks(bank string) ([]domain.Bank, error) {
	if bank == "" {
		return uc.registry.Banks(), nil
	}
	b, err := uc.registry.Resolve(bank)
	if err != nil {
		return nil, err
	}
	return []domain.Bank{b}, nil
}

// fanOut runs one query per bank with bounded parallelism and merges the
// surviving items in registry order. listKey names the wrapper field the
// partner may use; a bare array response is accepted too.
func (uc *ProductUsecase) fanOut(ctx context.Context, banks []domain.Bank, path string, opts bankapi.RequestOptions, listKey string, tag func(map[string]any, domain.Bank)) ([]map[string]any, []BankFailure) {
	perBank := make([][]map[string]any, len(banks))
	errs := make([]error, len(banks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(banks))

	for i, b := range banks {
		g.Go(func() error {
			body, err := uc.router.Request(gctx, b.ID, http.MethodGet, path, opts)
			if err != nil {
				errs[i] = err
				return nil
			}
			items, err := decodeList(body, listKey)
			if err != nil {
				errs[i] = err
				return nil
			}
			for _, item := range items {
				tag(item, b)
			}
			perBank[i] = items
			return nil
		})
	}
	g.Wait()

	merged := []map[string]any{}
	var failures []BankFailure
	for i, b := range banks {
		if errs[i] != nil {
			slog.WarnContext(ctx, "partner excluded from fan-out",
				slog.String("bank", b.ID),
				slog.String("path", path),
				slog.String("error", errs[i].Error()),
				slog.String("module", "products"),
			)
			failures = append(failures, BankFailure{Bank: b.ID, Error: errs[i].Error()})
			continue
		}
		merged = append(merged, perBank[i]...)
	}
	return merged, failures
}

// decodeList accepts either {"<key>": [...]} or a bare JSON array.
func decodeList(body json.RawMessage, key string) ([]map[string]any, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if inner, ok := wrapped[key]; ok {
			body = inner
		} else {
			return nil, nil
		}
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// tagObject adds the source bank to a single partner object. The partner's
// own members are spliced through untouched.
func tagObject(body json.RawMessage, bank string, withName bool) (json.RawMessage, error) {
	if !json.Valid(body) {
		return body, nil
	}
	pairs := []utils.KV{{Key: "bank", Value: bank}}
	if withName {
		pairs = append(pairs, utils.KV{Key: "bankName", Value: strings.ToUpper(bank)})
	}
	tagged, err := utils.ExtendObject(body, pairs...)
	if err != nil {
		// not an object, relay untouched
		return body, nil
	}
	return tagged, nil
}
