// Package cookie stores the whole cart in a browser cookie.
package cookie

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/domain"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
)

// DefaultCookieName is the cookie holding the serialized cart.
const DefaultCookieName = "cart"

// MaxCookieBytes bounds the encoded cookie value. Browsers drop larger
// cookies silently, so Save refuses them instead.
const MaxCookieBytes = 4096

// ErrTooLarge is returned by Save when the encoded cart exceeds MaxCookieBytes.
var ErrTooLarge = &apperrors.AppError{
	Code:    "CART_TOO_LARGE",
	Message: "cart is too large to store in a cookie",
	Status:  http.StatusRequestEntityTooLarge,
	Err:     apperrors.ErrInvalidInput,
}

// errNoJar means the request did not pass through Middleware.
var errNoJar = errors.New("cookie cart store used outside of cookie.Middleware")

type jarKey struct{}

// jar gives the repository access to the cookies of the current request and
// to the response being written. Writes are visible to later reads in the
// same request.
type jar struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	written map[string]*http.Cookie
}

func (j *jar) get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.written[name]; ok {
		return c.Value, c.MaxAge >= 0
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (j *jar) set(c *http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.written[c.Name] = c
	http.SetCookie(j.w, c)
}

// Middleware installs the request-scoped cookie jar used by CartRepository.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		j := &jar{r: r, w: w, written: make(map[string]*http.Cookie)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), jarKey{}, j)))
	})
}

func jarFromContext(ctx context.Context) (*jar, bool) {
	j, ok := ctx.Value(jarKey{}).(*jar)
	return j, ok
}

// Config configures the cart cookie.
type Config struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// CartRepository implements repository.CartRepository on top of a cookie.
// The cookie already belongs to one browser, so the session ID is only used
// for logging.
type CartRepository struct {
	cfg    Config
	logger *slog.Logger
}

// NewCartRepository creates a cookie-backed cart repository.
func NewCartRepository(cfg Config, logger *slog.Logger) *CartRepository {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	return &CartRepository{cfg: cfg, logger: logger}
}

// Load decodes the cart cookie. The cookie is client-controlled, so its totals
// are rebuilt from the lines. Missing, malformed or inconsistent values are
// not found.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	j, ok := jarFromContext(ctx)
	if !ok {
		return nil, errNoJar
	}

	value, ok := j.get(r.cfg.Name)
	if !ok || value == "" {
		return nil, apperrors.NotFound("cart", sessionID)
	}

	cart, err := decode(value)
	if err != nil {
		r.logger.WarnContext(ctx, "discarding malformed cart cookie",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.NotFound("cart", sessionID)
	}
	return cart, nil
}

// Save encodes the cart into the response cookie.
func (r *CartRepository) Save(ctx context.Context, _ string, cart *domain.Cart) error {
	j, ok := jarFromContext(ctx)
	if !ok {
		return errNoJar
	}

	value, err := encode(cart)
	if err != nil {
		return err
	}
	if len(value) > MaxCookieBytes {
		return ErrTooLarge
	}

	j.set(r.cookie(value, int(r.cfg.MaxAge.Seconds())))
	return nil
}

// Delete expires the cart cookie.
func (r *CartRepository) Delete(ctx context.Context, _ string) error {
	j, ok := jarFromContext(ctx)
	if !ok {
		return errNoJar
	}
	j.set(r.cookie("", -1))
	return nil
}

func (r *CartRepository) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     r.cfg.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// encode serializes the cart as base64url JSON, which is cookie-safe.
func encode(cart *domain.Cart) (string, error) {
	data, err := json.Marshal(cart)
	if err != nil {
		return "", fmt.Errorf("marshal cart: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decode(value string) (*domain.Cart, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cart cookie: %w", err)
	}
	var raw domain.Cart
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal cart cookie: %w", err)
	}
	cart, err := domain.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}
