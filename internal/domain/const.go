package domain

// Header names forwarded to partner banks. Forwarding is allow-listed per
// operation so internal request metadata never leaks downstream.
const (
	RequestingBankHeader            = "X-Requesting-Bank"
	PaymentConsentIdHeader          = "X-Payment-Consent-Id"
	FapiInteractionIdHeader         = "X-Fapi-Interaction-Id"
	FapiCustomerIpHeader            = "X-Fapi-Customer-Ip-Address"
	ProductAgreementConsentIdHeader = "X-Product-Agreement-Consent-Id"
)

// PaymentCreateHeaders may be forwarded on payment creation.
var PaymentCreateHeaders = []string{
	PaymentConsentIdHeader,
	RequestingBankHeader,
	FapiInteractionIdHeader,
	FapiCustomerIpHeader,
}

// PaymentStatusHeaders may be forwarded on payment status polling.
var PaymentStatusHeaders = []string{
	FapiInteractionIdHeader,
}

// AgreementHeaders may be forwarded on product-agreement operations.
var AgreementHeaders = []string{
	ProductAgreementConsentIdHeader,
	RequestingBankHeader,
}
