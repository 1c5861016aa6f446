package usecase

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/multibank/gateway/internal/infra/bankapi"
)

// Router issues one authenticated HTTP call to a named partner bank. All
// consent, payment, and product operations compose through it.
type Router interface {
	Request(ctx context.Context, bank, method, path string, opts bankapi.RequestOptions) (json.RawMessage, error)
}

// allowHeaders copies only the allow-listed header names from src, so
// internal request metadata is never forwarded to a partner bank.
func allowHeaders(src http.Header, allowed []string) http.Header {
	out := http.Header{}
	for _, name := range allowed {
		if v := src.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	return out
}
