package paymentController

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"academy/config"
	"academy/database"
	"academy/middleware"
	"academy/models"
	"academy/services/purchase"
	"academy/utils"

	"github.com/gofiber/fiber/v2"
)

// signatureTolerance bounds how old a signed webhook timestamp may be.
const signatureTolerance = 5 * time.Minute

// verifyStripeSignature checks the Stripe-Signature header (t=...,v1=...)
// against an HMAC-SHA256 of "<timestamp>.<payload>" with the webhook secret.
func verifyStripeSignature(payload []byte, header, secret string) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("malformed signature timestamp")
	}
	// Absolute skew: a timestamp dated in the future is just as far outside
	// the window as a stale one.
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > signatureTolerance {
		return errors.New("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return nil
		}
	}
	return errors.New("no matching signature")
}

// StripeWebhook receives payment events. Signature verification and retry
// semantics live here at the transport boundary: metadata problems are
// terminal 400s, transient store/provider trouble is a 500 so Stripe
// redelivers, ignored event types are acknowledged.
func StripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	if err := verifyStripeSignature(payload, c.Get("Stripe-Signature"), config.AppConfig.StripeWebhookSecret); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Webhook signature verification failed!", nil)
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Malformed webhook payload!", nil)
	}

	row, err := paymentWorkflow().CompleteFromEvent(c.UserContext(), purchase.Event{
		ID:       event.ID,
		Type:     event.Type,
		Metadata: event.Data.Object.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, purchase.ErrUnhandledEvent):
			// Acknowledged so Stripe stops redelivering an event type we
			// never act on.
			return middleware.JsonResponse(c, fiber.StatusOK, true, "Event ignored.", nil)
		case errors.Is(err, purchase.ErrMissingMetadata):
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Missing metadata!", nil)
		default:
			log.Printf("Failed to process payment event %s: %v", event.ID, err)
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process event!", nil)
		}
	}

	go sendPurchaseEmail(row.UserID, row.CourseID)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Event processed.", nil)
}

// sendPurchaseEmail mails the confirmation outside the webhook response
// path; the purchase row already exists either way.
func sendPurchaseEmail(userID, courseID uint) {
	var user models.User
	if err := database.Database.Db.First(&user, userID).Error; err != nil {
		log.Printf("Purchase confirmation skipped, user %d not found: %v", userID, err)
		return
	}
	var course models.Course
	if err := database.Database.Db.First(&course, courseID).Error; err != nil {
		log.Printf("Purchase confirmation skipped, course %d not found: %v", courseID, err)
		return
	}
	utils.SendPurchaseConfirmation(user.Name, user.Email, course.Title)
}
