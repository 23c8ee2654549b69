package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/starfallrpg/starfall-client/internal/client/models"
	"github.com/starfallrpg/starfall-client/internal/common"
	"github.com/starfallrpg/starfall-client/internal/logging"
)

// HTTPClient is the concrete Client over the game backend's REST API.
// A single instance is shared by the whole process; the token and the
// auth-failure handler are the only mutable fields.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu            sync.RWMutex
	token         string
	onAuthFailure func()
}

// NewHTTPClient constructs an HTTPClient for the given base URL. The
// timeout applies per request; timeouts surface as ErrUnavailable.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Token returns the currently installed bearer token ("" when anonymous).
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetAuthFailureHandler installs the callback invoked whenever a request
// fails with an authorization error. Replaces any previous handler.
func (c *HTTPClient) SetAuthFailureHandler(fn func()) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

func (c *HTTPClient) notifyAuthFailure() {
	c.mu.RLock()
	fn := c.onAuthFailure
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// errorBody mirrors the backend's failure payload.
type errorBody struct {
	Detail string `json:"detail"`
}

// do performs one JSON round trip. in and out may be nil. The bearer token
// is attached when installed; an expired token short-circuits without a
// network call (the server would reject it anyway) and triggers the
// auth-failure handler, same as a 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	token := c.Token()
	if token != "" && tokenExpired(token, time.Now()) {
		c.log.Debug(ctx, "token expired locally, skipping request", "path", path)
		c.notifyAuthFailure()
		return fmt.Errorf("%w: %w", ErrUnauthorized, common.ErrTokenExpired)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn(ctx, "request unauthorized", "path", path)
		// A rejected anonymous request (wrong login password) is a plain
		// failure; only a rejected token tears the session down.
		if token != "" {
			c.notifyAuthFailure()
		}
		return ErrUnauthorized
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	return &APIError{Status: resp.StatusCode, Detail: eb.Detail}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/api/register", credentialsRequest{Username: username, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Login authenticates with username and password. A 403 from this endpoint
// specifically means the account predates password support and is mapped
// to ErrLegacyNeedsPassword.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/api/login", credentialsRequest{Username: username, Password: password}, &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %s", ErrLegacyNeedsPassword, apiErr.Detail)
		}
		return nil, err
	}
	return &res, nil
}

type setPasswordResponse struct {
	Token string `json:"token"`
}

// SetPassword sets a password on a legacy account. The response carries a
// fresh token but no user body; callers follow up with GetUser.
func (c *HTTPClient) SetPassword(ctx context.Context, username, password string) (string, error) {
	var res setPasswordResponse
	err := c.do(ctx, http.MethodPost, "/api/password", credentialsRequest{Username: username, Password: password}, &res)
	if err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *HTTPClient) GetUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) ListHeroes(ctx context.Context) ([]*models.OwnedHero, error) {
	var hs []*models.OwnedHero
	if err := c.do(ctx, http.MethodGet, "/api/heroes", nil, &hs); err != nil {
		return nil, err
	}
	return hs, nil
}

func (c *HTTPClient) GetHero(ctx context.Context, instanceID string) (*models.OwnedHero, error) {
	var h models.OwnedHero
	if err := c.do(ctx, http.MethodGet, "/api/heroes/"+instanceID, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) ListCatalog(ctx context.Context) ([]*models.HeroCatalogEntry, error) {
	var es []*models.HeroCatalogEntry
	if err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &es); err != nil {
		return nil, err
	}
	return es, nil
}

type gachaPullRequest struct {
	Count int `json:"count"`
}

func (c *HTTPClient) PullGacha(ctx context.Context, count int) (*models.GachaPullResult, error) {
	var res models.GachaPullResult
	if err := c.do(ctx, http.MethodPost, "/api/gacha/pull", gachaPullRequest{Count: count}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) UpgradeHero(ctx context.Context, instanceID string) (*models.OwnedHero, error) {
	var h models.OwnedHero
	if err := c.do(ctx, http.MethodPost, "/api/heroes/"+instanceID+"/upgrade", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) ClaimIdleRewards(ctx context.Context) (*models.IdleReward, error) {
	var r models.IdleReward
	if err := c.do(ctx, http.MethodPost, "/api/idle/claim", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

type ratingResponse struct {
	CombatRating int `json:"combatRating"`
}

func (c *HTTPClient) GetCombatRating(ctx context.Context) (int, error) {
	var r ratingResponse
	if err := c.do(ctx, http.MethodGet, "/api/rating", nil, &r); err != nil {
		return 0, err
	}
	return r.CombatRating, nil
}
