package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"academy/config"
	"academy/services/purchase"

	"github.com/go-resty/resty/v2"
)

// StripeClient talks to the Stripe API using form-encoded requests. It
// satisfies the payment provider port of the purchase workflow.
type StripeClient struct {
	client *resty.Client
}

func NewStripeClient() *StripeClient {
	client := resty.New().
		SetBaseURL("https://api.stripe.com").
		SetAuthToken(config.AppConfig.StripeSecretKey).
		SetTimeout(15 * time.Second)
	return &StripeClient{client: client}
}

// CreateCustomer registers a Stripe customer for the learner's email
func (s *StripeClient) CreateCustomer(ctx context.Context, email string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"email": email}).
		Post("/v1/customers")
	if err != nil {
		return "", &ProviderError{Provider: "stripe", Op: "create customer", Retryable: true, Err: err}
	}
	if resp.IsError() {
		return "", stripeError("create customer", resp)
	}

	var customer struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body(), &customer); err != nil {
		return "", &ProviderError{Provider: "stripe", Op: "create customer", StatusCode: resp.StatusCode(), Err: err}
	}
	return customer.ID, nil
}

// CreateCheckoutSession opens a one-payment checkout session for a single
// course line item and returns the hosted redirect URL. The metadata is
// echoed back on the completion webhook.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, params purchase.CheckoutParams) (string, error) {
	form := map[string]string{
		"mode":                    "payment",
		"customer":                params.CustomerID,
		"payment_method_types[0]": "card",
		"success_url":             params.SuccessURL,
		"cancel_url":              params.CancelURL,

		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][currency]":           params.Currency,
		"line_items[0][price_data][unit_amount]":        strconv.FormatInt(params.UnitAmount, 10),
		"line_items[0][price_data][product_data][name]": params.ProductName,
	}
	for key, value := range params.Metadata {
		form[fmt.Sprintf("metadata[%s]", key)] = value
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/v1/checkout/sessions")
	if err != nil {
		return "", &ProviderError{Provider: "stripe", Op: "create checkout session", Retryable: true, Err: err}
	}
	if resp.IsError() {
		return "", stripeError("create checkout session", resp)
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return "", &ProviderError{Provider: "stripe", Op: "create checkout session", StatusCode: resp.StatusCode(), Err: err}
	}
	return session.URL, nil
}

func stripeError(op string, resp *resty.Response) error {
	return &ProviderError{
		Provider:   "stripe",
		Op:         op,
		StatusCode: resp.StatusCode(),
		Retryable:  resp.StatusCode() >= 500,
		Err:        fmt.Errorf("API error: %s", resp.String()),
	}
}
