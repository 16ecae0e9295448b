package paymentRoutes

import (
	controllers "academy/controllers/payment"
	"academy/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up checkout, learning and webhook routes
func SetupPaymentRoutes(app *fiber.App) {
	app.Post("/courses/:courseId/checkout", middleware.JWTMiddleware, controllers.Checkout)
	app.Get("/learning", middleware.JWTMiddleware, controllers.GetLearning)

	// Stripe calls this directly; authentication is the signed payload, not a JWT
	app.Post("/webhook/stripe", controllers.StripeWebhook)
}
