package authorization

import (
	"time"

	"github.com/cristalhq/jwt/v4"
	"rental_service/domain"
)

const rulesSubject = "rules-download"

type linkClaims struct {
	jwt.RegisteredClaims
	HomeID string `json:"homeId"`
}

// LinkSigner issues short-lived tokens that let anyone holding the link
// download one listing's rules document.
type LinkSigner struct {
	signer   jwt.Signer
	verifier jwt.Verifier
	ttl      time.Duration
	now      func() time.Time
}

func NewLinkSigner(secret []byte, ttl time.Duration) (*LinkSigner, error) {
	signer, err := jwt.NewSignerHS(jwt.HS256, secret)
	if err != nil {
		return nil, err
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, secret)
	if err != nil {
		return nil, err
	}
	return &LinkSigner{signer: signer, verifier: verifier, ttl: ttl, now: time.Now}, nil
}

func (l *LinkSigner) Sign(homeID string) (string, time.Time, error) {
	now := l.now()
	expiresAt := now.Add(l.ttl)
	claims := &linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rulesSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		HomeID: homeID,
	}

	token, err := jwt.NewBuilder(l.signer).Build(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token.String(), expiresAt, nil
}

// Verify returns domain.ErrUnauthorized unless the token was issued for homeID
// and has not expired.
func (l *LinkSigner) Verify(token, homeID string) error {
	var claims linkClaims
	if err := jwt.ParseClaims([]byte(token), l.verifier, &claims); err != nil {
		return domain.ErrUnauthorized
	}
	if claims.Subject != rulesSubject || claims.HomeID != homeID || !claims.IsValidAt(l.now()) {
		return domain.ErrUnauthorized
	}
	return nil
}
