package purchase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"academy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventCheckoutCompleted is the only provider event type that produces a
// purchase record.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrAlreadyPurchased means a purchase row already exists for the
	// (user, course) pair at checkout time.
	ErrAlreadyPurchased = errors.New("course already purchased")

	// ErrCourseUnavailable means the course does not exist or is not
	// published; the two are deliberately indistinguishable.
	ErrCourseUnavailable = errors.New("course is not available for purchase")

	// ErrMissingMetadata means a completion event arrived without usable
	// correlation metadata. Terminal: retrying the delivery cannot fix it.
	ErrMissingMetadata = errors.New("event metadata is missing or malformed")

	// ErrUnhandledEvent marks event types this workflow ignores. Not fatal;
	// the transport acknowledges the delivery.
	ErrUnhandledEvent = errors.New("unhandled event type")
)

// PaymentProvider is the external payment service used for checkout.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email string) (customerID string, err error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (redirectURL string, err error)
}

// CheckoutParams carries one course line item plus the correlation metadata
// the provider echoes back on its completion event.
type CheckoutParams struct {
	CustomerID  string
	ProductName string
	UnitAmount  int64 // currency minor units
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Event is an inbound provider webhook event after transport-level signature
// verification.
type Event struct {
	ID       string
	Type     string
	Metadata map[string]string
}

// Workflow turns a checkout initiation into a provider redirect and a
// provider completion event into exactly one purchase row. Idempotency under
// at-least-once delivery comes from the store's (user, course) unique index,
// not from application locks.
type Workflow struct {
	db       *gorm.DB
	provider PaymentProvider
	baseURL  string
	currency string
}

func NewWorkflow(db *gorm.DB, provider PaymentProvider, baseURL, currency string) *Workflow {
	return &Workflow{db: db, provider: provider, baseURL: baseURL, currency: currency}
}

// StartCheckout validates the purchase intent, lazily creates the provider
// customer mapping for the user, and returns the provider's redirect URL.
func (w *Workflow) StartCheckout(ctx context.Context, user *models.User, courseID uint) (string, error) {
	var course models.Course
	err := w.db.Where("id = ? AND is_published = ?", courseID, true).First(&course).Error
	if err == gorm.ErrRecordNotFound {
		return "", ErrCourseUnavailable
	}
	if err != nil {
		return "", err
	}
	if course.Price == nil {
		return "", ErrCourseUnavailable
	}

	var existing models.Purchase
	err = w.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).First(&existing).Error
	if err == nil {
		return "", ErrAlreadyPurchased
	}
	if err != gorm.ErrRecordNotFound {
		return "", err
	}

	customerID, err := w.customerFor(ctx, user)
	if err != nil {
		return "", err
	}

	overviewURL := fmt.Sprintf("%s/courses/%d/overview", w.baseURL, course.ID)
	return w.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:  customerID,
		ProductName: course.Title,
		UnitAmount:  *course.Price,
		Currency:    w.currency,
		SuccessURL:  overviewURL + "?success=true",
		CancelURL:   overviewURL + "?canceled=true",
		Metadata: map[string]string{
			"courseId": strconv.FormatUint(uint64(course.ID), 10),
			"userId":   strconv.FormatUint(uint64(user.ID), 10),
		},
	})
}

// CompleteFromEvent processes a provider webhook event. Completion events are
// idempotent: a duplicate delivery finds the existing purchase row and
// reports success. Other event types return ErrUnhandledEvent.
func (w *Workflow) CompleteFromEvent(ctx context.Context, event Event) (*models.Purchase, error) {
	if event.Type != EventCheckoutCompleted {
		log.Printf("Ignoring payment event %s of type %s", event.ID, event.Type)
		return nil, ErrUnhandledEvent
	}

	userID, courseID, err := correlationIDs(event.Metadata)
	if err != nil {
		return nil, err
	}

	purchase := models.Purchase{
		UserID:      userID,
		CourseID:    courseID,
		ReferenceID: uuid.NewString(),
	}
	err = w.db.Create(&purchase).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// At-least-once delivery: the first delivery already recorded it.
		var existing models.Purchase
		if err := w.db.Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// customerFor returns the provider customer id for the user, creating the
// mapping on first use. A concurrent insert race is reconciled by re-reading
// the mapping rather than erroring.
func (w *Workflow) customerFor(ctx context.Context, user *models.User) (string, error) {
	var mapping models.StripeCustomer
	err := w.db.Where("user_id = ?", user.ID).First(&mapping).Error
	if err == nil {
		return mapping.StripeCustomerID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", err
	}

	customerID, err := w.provider.CreateCustomer(ctx, user.Email)
	if err != nil {
		return "", err
	}

	mapping = models.StripeCustomer{UserID: user.ID, StripeCustomerID: customerID}
	if err := w.db.Create(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.StripeCustomer
			if err := w.db.Where("user_id = ?", user.ID).First(&existing).Error; err != nil {
				return "", err
			}
			return existing.StripeCustomerID, nil
		}
		return "", err
	}
	return mapping.StripeCustomerID, nil
}

func correlationIDs(metadata map[string]string) (userID, courseID uint, err error) {
	rawUser := metadata["userId"]
	rawCourse := metadata["courseId"]
	if rawUser == "" || rawCourse == "" {
		return 0, 0, ErrMissingMetadata
	}
	parsedUser, err := strconv.ParseUint(rawUser, 10, 64)
	if err != nil {
		return 0, 0, ErrMissingMetadata
	}
	parsedCourse, err := strconv.ParseUint(rawCourse, 10, 64)
	if err != nil {
		return 0, 0, ErrMissingMetadata
	}
	return uint(parsedUser), uint(parsedCourse), nil
}
