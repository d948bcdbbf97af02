package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// tokenTTL — время жизни токена
const tokenTTL = 8 * time.Hour

// Claims — содержимое токена.
type Claims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из токена.
func (c *Claims) UserID() int {
	id, _ := strconv.Atoi(c.Sub)
	return id
}

// AuthService выдает и проверяет токены.
type AuthService struct {
	hmac []byte
	now  func() time.Time
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{hmac: []byte(secret), now: time.Now}
}

func (a *AuthService) IssueJWT(u *user) (string, error) {
	now := a.now()
	claims := &Claims{
		Sub:  strconv.Itoa(u.ID),
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "smartfox-mock",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

func withClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func claimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(ctxKeyClaims).(*Claims)
	return c
}

// JWTMiddleware проверяет токен из заголовка Authorization.
// Клиент кладет туда токен без префикса, но "Bearer " тоже принимается.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if h == "" {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}
			c, err := a.Parse(h)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), c)))
		})
	}
}

// RequireRole пропускает только пользователей с ролью role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := claimsFromContext(r.Context())
			if c == nil || c.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
