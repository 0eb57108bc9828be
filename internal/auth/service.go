package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend-heggeo/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour

	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	ErrMissingCredentials = errors.New("email and password required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

var (
	hashPasswordFn = bcrypt.GenerateFromPassword
	passwordCost   = bcrypt.DefaultCost
)

type Service struct {
	secret []byte
	db     db.Querier
	now    func() time.Time
}

type Claims struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{secret: []byte(secret), db: db, now: time.Now}
}

func (s *Service) Register(ctx context.Context, req Credentials) (Account, TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return Account{}, TokenPair{}, ErrMissingCredentials
	}
	hash, err := hashPasswordFn([]byte(req.Password), passwordCost)
	if err != nil {
		return Account{}, TokenPair{}, err
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, account.ID, account.Email, account.DisplayName, account.PasswordHash)
	if err := row.Scan(&account.CreatedAt); err != nil {
		return Account{}, TokenPair{}, err
	}

	tokens, err := s.IssueTokens(ctx, account.ID)
	if err != nil {
		return Account{}, TokenPair{}, err
	}
	return account, tokens, nil
}

func (s *Service) Login(ctx context.Context, req Credentials) (Account, TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return Account{}, TokenPair{}, ErrMissingCredentials
	}

	var account Account
	err := s.db.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM accounts WHERE email=$1
	`, email).Scan(&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return Account{}, TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return Account{}, TokenPair{}, ErrInvalidCredentials
	}

	tokens, err := s.IssueTokens(ctx, account.ID)
	if err != nil {
		return Account{}, TokenPair{}, err
	}
	return account, tokens, nil
}

func (s *Service) IssueTokens(ctx context.Context, userID string) (TokenPair, error) {
	access, err := s.sign(userID, kindAccess, accessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(userID, kindRefresh, refreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, refresh, s.now().Add(refreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// Refresh revokes the presented refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, token string) (TokenPair, error) {
	claims, err := s.parse(token, kindRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at=now()
		WHERE token=$1 AND account_id=$2 AND revoked_at IS NULL AND expires_at > $3
	`, token, claims.UserID, s.now())
	if err != nil {
		return TokenPair{}, err
	}
	if tag.RowsAffected() == 0 {
		return TokenPair{}, ErrTokenInvalid
	}
	return s.IssueTokens(ctx, claims.UserID)
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parse(token, kindAccess)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) sign(userID, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(token, kind string) (*Claims, error) {
	return parseClaims(token, s.secret, kind)
}

func parseClaims(token string, secret []byte, kind string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
