package purchase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"academy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakePayment struct {
	customersCreated []string // emails
	sessions         []CheckoutParams
}

func (f *fakePayment) CreateCustomer(_ context.Context, email string) (string, error) {
	f.customersCreated = append(f.customersCreated, email)
	return fmt.Sprintf("cus_%d", len(f.customersCreated)), nil
}

func (f *fakePayment) CreateCheckoutSession(_ context.Context, params CheckoutParams) (string, error) {
	f.sessions = append(f.sessions, params)
	return "https://pay.example/session/abc", nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.StripeCustomer{},
		&models.Purchase{},
	))
	return db
}

func createLearner(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Name: "Student", Email: email, Password: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createPublishedCourse(t *testing.T, db *gorm.DB, title string, price int64) *models.Course {
	t.Helper()
	course := models.Course{InstructorID: 1, Title: title, Price: &price, IsPublished: true}
	require.NoError(t, db.Create(&course).Error)
	return &course
}

func TestStartCheckoutUnavailableCourse(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakePayment{}
	w := NewWorkflow(db, provider, "http://localhost:3000", "cad")
	user := createLearner(t, db, "a@example.com")

	// Absent course.
	_, err := w.StartCheckout(context.Background(), user, 999)
	assert.ErrorIs(t, err, ErrCourseUnavailable)

	// Draft course: identical failure, existence is not leaked.
	price := int64(1000)
	draft := models.Course{InstructorID: 1, Title: "Draft", Price: &price}
	require.NoError(t, db.Create(&draft).Error)
	_, err = w.StartCheckout(context.Background(), user, draft.ID)
	assert.ErrorIs(t, err, ErrCourseUnavailable)

	assert.Empty(t, provider.sessions)
}

func TestStartCheckoutAlreadyPurchased(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakePayment{}
	w := NewWorkflow(db, provider, "http://localhost:3000", "cad")
	user := createLearner(t, db, "a@example.com")
	course := createPublishedCourse(t, db, "Go", 4999)

	require.NoError(t, db.Create(&models.Purchase{
		UserID: user.ID, CourseID: course.ID, ReferenceID: "ref",
	}).Error)

	_, err := w.StartCheckout(context.Background(), user, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)
	assert.Empty(t, provider.sessions)
}

func TestStartCheckoutBuildsSession(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakePayment{}
	w := NewWorkflow(db, provider, "https://academy.example", "cad")
	user := createLearner(t, db, "a@example.com")
	course := createPublishedCourse(t, db, "Go", 4999)

	url, err := w.StartCheckout(context.Background(), user, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/session/abc", url)

	require.Len(t, provider.sessions, 1)
	session := provider.sessions[0]
	assert.Equal(t, "cus_1", session.CustomerID)
	assert.Equal(t, "Go", session.ProductName)
	assert.Equal(t, int64(4999), session.UnitAmount)
	assert.Equal(t, "cad", session.Currency)
	assert.Equal(t, fmt.Sprintf("https://academy.example/courses/%d/overview?success=true", course.ID), session.SuccessURL)
	assert.Equal(t, fmt.Sprintf("https://academy.example/courses/%d/overview?canceled=true", course.ID), session.CancelURL)
	assert.Equal(t, map[string]string{
		"courseId": fmt.Sprint(course.ID),
		"userId":   fmt.Sprint(user.ID),
	}, session.Metadata)
}

func TestStartCheckoutReusesCustomerMapping(t *testing.T) {
	db := setupTestDB(t)
	provider := &fakePayment{}
	w := NewWorkflow(db, provider, "http://localhost:3000", "cad")
	user := createLearner(t, db, "a@example.com")
	first := createPublishedCourse(t, db, "Go", 1000)
	second := createPublishedCourse(t, db, "SQL", 2000)

	_, err := w.StartCheckout(context.Background(), user, first.ID)
	require.NoError(t, err)
	_, err = w.StartCheckout(context.Background(), user, second.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com"}, provider.customersCreated,
		"one provider customer per learner")

	var mappings int64
	require.NoError(t, db.Model(&models.StripeCustomer{}).Count(&mappings).Error)
	assert.EqualValues(t, 1, mappings)
}

func TestCompleteFromEventIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	w := NewWorkflow(db, &fakePayment{}, "http://localhost:3000", "cad")
	user := createLearner(t, db, "a@example.com")
	course := createPublishedCourse(t, db, "Go", 1000)

	event := Event{
		ID:   "evt_1",
		Type: EventCheckoutCompleted,
		Metadata: map[string]string{
			"userId":   fmt.Sprint(user.ID),
			"courseId": fmt.Sprint(course.ID),
		},
	}

	first, err := w.CompleteFromEvent(context.Background(), event)
	require.NoError(t, err)

	// At-least-once delivery: the retry succeeds and lands on the same row.
	second, err := w.CompleteFromEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	assert.EqualValues(t, 1, purchases)
}

func TestCompleteFromEventUnhandledType(t *testing.T) {
	db := setupTestDB(t)
	w := NewWorkflow(db, &fakePayment{}, "http://localhost:3000", "cad")

	_, err := w.CompleteFromEvent(context.Background(), Event{
		ID:   "evt_2",
		Type: "payment_intent.created",
	})
	assert.ErrorIs(t, err, ErrUnhandledEvent)

	var purchases int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&purchases).Error)
	assert.Zero(t, purchases)
}

func TestCompleteFromEventMissingMetadata(t *testing.T) {
	db := setupTestDB(t)
	w := NewWorkflow(db, &fakePayment{}, "http://localhost:3000", "cad")

	cases := map[string]map[string]string{
		"nil metadata":   nil,
		"missing course": {"userId": "1"},
		"missing user":   {"courseId": "1"},
		"malformed ids":  {"userId": "abc", "courseId": "1"},
	}
	for name, metadata := range cases {
		_, err := w.CompleteFromEvent(context.Background(), Event{
			ID:       "evt_3",
			Type:     EventCheckoutCompleted,
			Metadata: metadata,
		})
		assert.ErrorIs(t, err, ErrMissingMetadata, name)
	}
}
