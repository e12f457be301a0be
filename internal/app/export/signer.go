package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var (
	ErrNoSecret       = errors.New("summary signer has no secret")
	ErrInvalidReceipt = errors.New("invalid summary receipt")
)

// Receipt is the verified content of a signed summary.
type Receipt struct {
	GameID      string
	WinnerID    string
	FinalPot    int64
	TotalRounds int
	Digest      string
	IssuedAt    time.Time
}

// Matches reports whether the receipt was issued for s.
func (r Receipt) Matches(s Summary) bool {
	digest, err := s.Digest()
	return err == nil && digest == r.Digest && r.GameID == s.GameID
}

// Signer issues HS256 receipts for finished games.
type Signer struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer. A zero ttl issues receipts that never expire.
func NewSigner(secret, issuer string, ttl time.Duration) *Signer {
	return &Signer{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a compact JWT carrying the summary's headline numbers and digest.
func (s *Signer) Sign(summary Summary) (string, error) {
	if s == nil || s.secret == "" {
		return "", ErrNoSecret
	}
	digest, err := summary.Digest()
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":    s.issuer,
		"sub":    summary.GameID,
		"iat":    now.Unix(),
		"winner": summary.WinnerID,
		"pot":    summary.FinalPot,
		"rounds": summary.TotalRounds,
		"digest": digest,
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks the signature and issuer and returns the receipt.
func (s *Signer) Verify(tokenString string) (Receipt, error) {
	if s == nil || s.secret == "" {
		return Receipt{}, ErrNoSecret
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Receipt{}, ErrInvalidReceipt
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return Receipt{}, fmt.Errorf("%w: issuer %q", ErrInvalidReceipt, iss)
	}

	r := Receipt{}
	r.GameID, _ = claims["sub"].(string)
	r.WinnerID, _ = claims["winner"].(string)
	r.Digest, _ = claims["digest"].(string)
	if v, ok := claims["pot"].(float64); ok {
		r.FinalPot = int64(v)
	}
	if v, ok := claims["rounds"].(float64); ok {
		r.TotalRounds = int(v)
	}
	if v, ok := claims["iat"].(float64); ok {
		r.IssuedAt = time.Unix(int64(v), 0)
	}
	return r, nil
}
