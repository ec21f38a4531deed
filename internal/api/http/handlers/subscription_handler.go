package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
)

const stripeSignatureHeader = "Stripe-Signature"

// SubscriptionHandler exposes entitlement and payment endpoints.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler constructs handler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Check handles GET /api/subscription/check.
func (h *SubscriptionHandler) Check(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	status, err := h.subscriptions.Check(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(dto.SubscriptionStatusResponse{
		LimitReached:       status.LimitReached,
		SubscriptionActive: status.SubscriptionActive,
	})
}

// CreateSession handles POST /api/subscription/create-session.
func (h *SubscriptionHandler) CreateSession(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	session, err := h.subscriptions.CreateSession(c.UserContext(), principal.UserID())
	if err != nil {
		return err
	}
	return c.JSON(dto.CheckoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

// Webhook handles POST /api/subscription/webhook. The raw body is verified
// against the signature header before anything is parsed.
func (h *SubscriptionHandler) Webhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	outcome, err := h.subscriptions.HandleWebhook(c.UserContext(), payload, c.Get(stripeSignatureHeader))
	if err != nil {
		return err
	}
	return c.JSON(dto.WebhookResponse{Received: true, Outcome: string(outcome)})
}

// BitcoinInfo handles GET /api/subscription/bitcoin/info.
func (h *SubscriptionHandler) BitcoinInfo(c *fiber.Ctx) error {
	info := h.subscriptions.BitcoinInfo()
	return c.JSON(dto.BitcoinInfoResponse{Address: info.Address, Amount: info.Amount, Currency: info.Currency})
}

// VerifyBitcoin handles POST /api/subscription/bitcoin/verify.
func (h *SubscriptionHandler) VerifyBitcoin(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BitcoinVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := h.subscriptions.VerifyBitcoin(c.UserContext(), principal.UserID(), req.TransactionID); err != nil {
		return err
	}
	return c.JSON(dto.BitcoinVerifyResponse{
		Message:            "Payment verified! Your subscription is now active.",
		SubscriptionActive: true,
	})
}
