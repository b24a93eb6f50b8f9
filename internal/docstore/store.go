// Package docstore keeps bookings and availability in MongoDB.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/models"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	bookingsCollection     = "bookings"
	availabilityCollection = "restaurant_availability"
)

type Store struct {
	client       *mongo.Client
	bookings     *mongo.Collection
	availability *mongo.Collection
	logger       *zerolog.Logger
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string, logger *zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		bookings:     db.Collection(bookingsCollection),
		availability: db.Collection(availabilityCollection),
		logger:       logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info().Str("database", database).Msg("Mongo store initialized")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.bookings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// classify maps driver errors onto the storage error taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	default:
		return err
	}
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Version == 0 {
		booking.Version = 1
	}
	booking.CreatedAt = booking.CreatedAt.UTC()
	booking.UpdatedAt = booking.UpdatedAt.UTC()
	if _, err := s.bookings.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", classify(err))
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, classify(err))
	}
	return &b, nil
}

func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var b models.Booking
	if err := s.bookings.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", classify(err))
	}
	return &b, nil
}

func (s *Store) ListActiveBookings(ctx context.Context, restaurantID, date string) ([]*models.Booking, error) {
	return s.ListBookings(ctx, models.BookingFilter{
		RestaurantID: restaurantID,
		Date:         date,
		StatusIn:     models.ActiveStatuses,
	})
}

func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.bookings.Find(ctx, bookingQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", classify(err))
	}
	defer cursor.Close(ctx)

	bookings := []*models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", classify(err))
	}
	return bookings, nil
}

func bookingQuery(filter models.BookingFilter) bson.M {
	q := bson.M{}
	if filter.RestaurantID != "" {
		q["restaurant_id"] = filter.RestaurantID
	}
	if filter.UserID != "" {
		q["user_id"] = filter.UserID
	}
	dateRange := bson.M{}
	if filter.DateFrom != "" {
		dateRange["$gte"] = filter.DateFrom
	}
	if filter.DateTo != "" {
		dateRange["$lte"] = filter.DateTo
	}
	if filter.Date != "" {
		q["date"] = filter.Date
	} else if len(dateRange) > 0 {
		q["date"] = dateRange
	}
	if len(filter.StatusIn) > 0 {
		q["status"] = bson.M{"$in": filter.StatusIn}
	}
	return q
}

func (s *Store) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, updatedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{"status": status, "updated_at": updatedAt.UTC()},
		"$inc": bson.M{"version": 1},
	}
	return s.versionedUpdate(ctx, id, version, update)
}

func (s *Store) AssignTableWithVersion(ctx context.Context, id string, version int64, tableID, tableName string, updatedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{"table_id": tableID, "table_number": tableName, "updated_at": updatedAt.UTC()},
		"$inc": bson.M{"version": 1},
	}
	return s.versionedUpdate(ctx, id, version, update)
}

func (s *Store) versionedUpdate(ctx context.Context, id string, version int64, update bson.M) error {
	res, err := s.bookings.UpdateOne(ctx, bson.M{"_id": id, "version": version}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", id, classify(err))
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.bookings.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check booking %s: %w", id, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("booking %s: %w", id, domain.ErrConcurrentModification)
}

func (s *Store) GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	var a models.RestaurantAvailability
	if err := s.availability.FindOne(ctx, bson.M{"_id": restaurantID}).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to get availability for %s: %w", restaurantID, classify(err))
	}
	return &a, nil
}

func (s *Store) SaveAvailability(ctx context.Context, a *models.RestaurantAvailability) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	opts := options.Replace().SetUpsert(true)
	if _, err := s.availability.ReplaceOne(ctx, bson.M{"_id": a.RestaurantID}, a, opts); err != nil {
		return fmt.Errorf("failed to save availability: %w", classify(err))
	}
	return nil
}
