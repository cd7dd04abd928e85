package qr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
	"github.com/frahmantamala/sos-checkout/internal/profile"
)

// Claims is what a scanned QR token carries: enough to locate the profile
// and render the right tier of the emergency view.
type Claims struct {
	ProfileID string `json:"profile_id"`
	Plan      string `json:"plan"`
	jwt.RegisteredClaims
}

// Service issues and verifies QR access tokens. Tokens are signed HS256 and
// persisted on the profile so the link survives restarts; a renewal simply
// issues a fresh token over the old one.
type Service struct {
	signingSecret []byte
	tokenTTL      time.Duration
	publicBaseURL string
	profiles      profile.ServiceAPI
	logger        *slog.Logger
}

func NewService(signingSecret []byte, tokenTTL time.Duration, publicBaseURL string, profiles profile.ServiceAPI, logger *slog.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 365 * 24 * time.Hour
	}
	return &Service{
		signingSecret: signingSecret,
		tokenTTL:      tokenTTL,
		publicBaseURL: publicBaseURL,
		profiles:      profiles,
		logger:        logger,
	}
}

// IssueForProfile signs a token for the profile, stores it and returns the
// public emergency URL.
func (s *Service) IssueForProfile(ctx context.Context, profileID, plan string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ProfileID: profileID,
		Plan:      plan,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   profileID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token for profile %s: %w", profileID, err)
	}

	if err := s.profiles.SetAccessToken(ctx, profileID, tokenString); err != nil {
		return "", fmt.Errorf("store access token for profile %s: %w", profileID, err)
	}

	url := s.publicBaseURL + tokenString

	s.logger.Info("QR access token issued", "profile_id", profileID, "plan", plan)

	return url, nil
}

// Verify parses and validates a scanned token.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingSecret, nil
	})
	if err != nil {
		return nil, internal.NewUnauthorizedError("invalid access token", internal.ErrCodeInvalidAccessToken).WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.NewUnauthorizedError("invalid access token", internal.ErrCodeInvalidAccessToken)
	}
	return claims, nil
}

// HandlePaymentApproved issues the QR link once a payment lands approved.
// Best effort: a failure here never touches the payment, the token can be
// reissued on the next profile fetch or renewal.
func (s *Service) HandlePaymentApproved(ctx context.Context, event events.Event) error {
	approved, ok := event.(*events.PaymentApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	if approved.ProfileID == "" {
		s.logger.Warn("approved payment without profile, skipping QR issuance",
			"payment_id", approved.PaymentID)
		return nil
	}

	view, err := s.profiles.Get(ctx, approved.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile %s for QR issuance: %w", approved.ProfileID, err)
	}

	if _, err := s.IssueForProfile(ctx, view.ID, view.Plan); err != nil {
		return err
	}
	return nil
}

// RegisterEventHandlers wires the service into the in-process event bus.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentApproved, s.HandlePaymentApproved)
}
