package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/multibank/gateway/internal/domain"
	"github.com/multibank/gateway/internal/infra/bankapi"
)

// --- mocks ---

type routedCall struct {
	bank   string
	method string
	path   string
	opts   bankapi.RequestOptions
}

// mockRouter records every outbound call and answers from a canned table.
// Fan-out calls it concurrently.
type mockRouter struct {
	mu        sync.Mutex
	calls     []routedCall
	responses map[string]json.RawMessage
	failBanks map[string]error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		responses: map[string]json.RawMessage{},
		failBanks: map[string]error{},
	}
}

func (m *mockRouter) Request(ctx context.Context, bank, method, path string, opts bankapi.RequestOptions) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, routedCall{bank: bank, method: method, path: path, opts: opts})
	m.mu.Unlock()
	if err, ok := m.failBanks[bank]; ok {
		return nil, err
	}
	if body, ok := m.responses[bank+" "+path]; ok {
		return body, nil
	}
	return json.RawMessage(`{"status":"ok"}`), nil
}

func (m *mockRouter) lastCall(t *testing.T) routedCall {
	t.Helper()
	if len(m.calls) == 0 {
		t.Fatal("expected an outbound call")
	}
	return m.calls[len(m.calls)-1]
}

func decodeBody(t *testing.T, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	return out
}

// --- tests ---

func TestCreateAccountConsentAppliesDefaults(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.CreateAccountConsent(context.Background(), "vbank", AccountConsentRequest{
		ClientID: "client-1",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	call := router.lastCall(t)
	if call.method != http.MethodPost || call.path != "/account-consents/request" {
		t.Fatalf("unexpected call: %s %s", call.method, call.path)
	}
	if got := call.opts.Headers.Get(domain.RequestingBankHeader); got != "team042" {
		t.Fatalf("expected requesting-bank header, got %q", got)
	}

	body := decodeBody(t, call.opts.Body)
	if body["requesting_bank"] != "team042" {
		t.Fatalf("expected requesting_bank to be set, got %v", body["requesting_bank"])
	}
	if body["reason"] == "" || body["reason"] == nil {
		t.Fatal("expected a defaulted reason")
	}
	perms, ok := body["permissions"].([]any)
	if !ok || len(perms) != 3 {
		t.Fatalf("expected defaulted permissions, got %v", body["permissions"])
	}
}

func TestCreateAccountConsentKeepsCallerPermissions(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.CreateAccountConsent(context.Background(), "vbank", AccountConsentRequest{
		ClientID:    "client-1",
		Permissions: []string{"ReadBalances"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	body := decodeBody(t, router.lastCall(t).opts.Body)
	perms, _ := body["permissions"].([]any)
	if len(perms) != 1 || perms[0] != "ReadBalances" {
		t.Fatalf("caller permissions were replaced: %v", body["permissions"])
	}
}

func TestCreateAccountConsentRequiresClientID(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.CreateAccountConsent(context.Background(), "vbank", AccountConsentRequest{})

	var validation domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := validation.Fields["client_id"]; !ok {
		t.Fatalf("expected client_id in fields, got %v", validation.Fields)
	}
	if len(router.calls) != 0 {
		t.Fatal("validation failure must not reach the partner")
	}
}

func TestCreatePaymentConsentNeverDefaultsOptionalFields(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.CreatePaymentConsent(context.Background(), "vbank", PaymentConsentRequest{
		ClientID:      "client-1",
		DebtorAccount: "acc-1",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	body := decodeBody(t, router.lastCall(t).opts.Body)
	for _, field := range []string{
		"amount", "max_uses", "max_amount_per_payment", "max_total_amount",
		"vrp_max_individual_amount", "vrp_daily_limit", "vrp_monthly_limit",
		"valid_until", "allowed_creditor_accounts",
	} {
		if _, present := body[field]; present {
			t.Fatalf("optional field %q must be omitted when unset", field)
		}
	}
	if body["consent_type"] != "single_use" {
		t.Fatalf("expected defaulted consent_type, got %v", body["consent_type"])
	}
}

func TestCreatePaymentConsentForwardsSuppliedLimits(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	maxUses := 5
	maxPer := 100.0
	_, err := uc.CreatePaymentConsent(context.Background(), "vbank", PaymentConsentRequest{
		ClientID:            "client-1",
		DebtorAccount:       "acc-1",
		ConsentType:         "multi_use",
		MaxUses:             &maxUses,
		MaxAmountPerPayment: &maxPer,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	body := decodeBody(t, router.lastCall(t).opts.Body)
	if body["consent_type"] != "multi_use" {
		t.Fatalf("caller consent_type was replaced: %v", body["consent_type"])
	}
	if body["max_uses"] != float64(5) {
		t.Fatalf("max_uses not forwarded: %v", body["max_uses"])
	}
	if body["max_amount_per_payment"] != 100.0 {
		t.Fatalf("max_amount_per_payment not forwarded: %v", body["max_amount_per_payment"])
	}
}

func TestCreatePaymentConsentReportsAllMissingFields(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.CreatePaymentConsent(context.Background(), "vbank", PaymentConsentRequest{})

	var validation domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Fields) != 2 {
		t.Fatalf("expected both missing fields reported, got %v", validation.Fields)
	}
	if len(router.calls) != 0 {
		t.Fatal("validation failure must not reach the partner")
	}
}

func TestCreateProductAgreementConsentQueryOverridesBody(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	readFlag := true
	_, err := uc.CreateProductAgreementConsent(context.Background(), "vbank", "query-client", ProductAgreementConsentRequest{
		ClientID:              "body-client",
		ReadProductAgreements: &readFlag,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	call := router.lastCall(t)
	if got := call.opts.Params.Get("client_id"); got != "query-client" {
		t.Fatalf("expected query client_id to win, got %q", got)
	}

	body := decodeBody(t, call.opts.Body)
	if body["client_id"] != "query-client" {
		t.Fatalf("expected body client_id overridden, got %v", body["client_id"])
	}
	if body["read_product_agreements"] != true {
		t.Fatalf("tristate flag not forwarded: %v", body["read_product_agreements"])
	}
	if _, present := body["open_product_agreements"]; present {
		t.Fatal("unset tristate flag must be omitted")
	}
}

func TestRevokeConsentIssuesDelete(t *testing.T) {
	router := newMockRouter()
	uc := NewConsentUsecase(router, "team042")

	if err := uc.RevokePaymentConsent(context.Background(), "vbank", "pc-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	call := router.lastCall(t)
	if call.method != http.MethodDelete || call.path != "/payment-consents/pc-1" {
		t.Fatalf("unexpected call: %s %s", call.method, call.path)
	}
}

func TestConsentPartnerErrorIsRelayedUnchanged(t *testing.T) {
	router := newMockRouter()
	router.failBanks["vbank"] = domain.PartnerError{StatusCode: 409, Message: "consent already revoked"}
	uc := NewConsentUsecase(router, "team042")

	_, err := uc.GetAccountConsent(context.Background(), "vbank", "ac-1")

	var partner domain.PartnerError
	if !errors.As(err, &partner) {
		t.Fatalf("expected PartnerError, got %v", err)
	}
	if partner.StatusCode != 409 || partner.Message != "consent already revoked" {
		t.Fatalf("partner error was rewritten: %+v", partner)
	}
}
