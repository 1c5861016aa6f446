package bankapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/multibank/gateway/internal/domain"
)

// tokenSkew is subtracted from the partner-reported lifetime so a token is
// treated as expired before in-flight calls can race its real expiry.
const tokenSkew = 60 * time.Second

const defaultExpiresIn = 3600

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenCache acquires and caches one client-credentials bearer token per
// partner bank. Tokens never leave process memory.
type TokenCache struct {
	registry   *domain.Registry
	client     *http.Client
	teamID     string
	teamSecret string
	tokens     *cache.Cache
	group      singleflight.Group
}

func NewTokenCache(registry *domain.Registry, client *http.Client, teamID, teamSecret string) *TokenCache {
	return &TokenCache{
		registry:   registry,
		client:     client,
		teamID:     teamID,
		teamSecret: teamSecret,
		tokens:     cache.New(cache.NoExpiration, 5*time.Minute),
	}
}

// Get returns a valid bearer token for bank, performing the credentials
// exchange on a miss. Concurrent misses for the same bank are collapsed
// into a single exchange.
func (tc *TokenCache) Get(ctx context.Context, bank string) (string, error) {
	b, err := tc.registry.Resolve(bank)
	if err != nil {
		return "", err
	}

	if token, found := tc.tokens.Get(bank); found {
		return token.(string), nil
	}

	v, err, _ := tc.group.Do(bank, func() (any, error) {
		if token, found := tc.tokens.Get(bank); found {
			return token.(string), nil
		}
		return tc.exchange(ctx, b)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (tc *TokenCache) exchange(ctx context.Context, bank domain.Bank) (string, error) {
	q := url.Values{}
	q.Set("client_id", tc.teamID)
	q.Set("client_secret", tc.teamSecret)
	endpoint := bank.BaseURL + "/auth/bank-token?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: err.Error(), Err: err}
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: partnerMessage(body, resp.StatusCode)}
	}

	var token tokenResponse
	err = json.Unmarshal(body, &token)
	if err != nil {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: err.Error(), Err: err}
	}
	if token.AccessToken == "" {
		return "", domain.BankAuthError{Bank: bank.ID, Detail: "partner returned no access_token"}
	}

	if token.ExpiresIn == 0 {
		token.ExpiresIn = defaultExpiresIn
	}

	// a lifetime at or below the skew is never cached
	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenSkew
	if ttl > 0 {
		tc.tokens.Set(bank.ID, token.AccessToken, ttl)
	}

	return token.AccessToken, nil
}
