// Package mongo provides a MongoDB-backed implementation of storage.Storage.
//
// Documents use ObjectIDs as _id; the API exposes them as hex strings. A
// unique index on email enforces the uniqueness invariant, and duplicate key
// errors from the server are mapped to storage.ErrDuplicateEmail.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

const connectTimeout = 10 * time.Second

// Mongo wraps a client and the students collection.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

var _ storage.Storage = (*Mongo)(nil)

// studentDocument is the stored shape of types.Student.
type studentDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Email            string             `bson:"email"`
	PhoneNumber      string             `bson:"phoneNumber,omitempty"`
	CodeforcesHandle string             `bson:"codeforcesHandle,omitempty"`
	CurrentRating    int                `bson:"currentRating"`
	MaxRating        int                `bson:"maxRating"`
	SyncSettings     syncSettingsDoc    `bson:"syncSettings"`
	LastSyncedAt     *time.Time         `bson:"lastSyncedAt"`
	ReminderCount    int                `bson:"reminderCount"`
	LastReminderSent *time.Time         `bson:"lastReminderSent"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

type syncSettingsDoc struct {
	SyncTime       string `bson:"syncTime"`
	SyncFrequency  string `bson:"syncFrequency"`
	EmailReminders bool   `bson:"emailReminders"`
}

// New connects using cfg.Mongo and prepares the collection.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	return Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
}

// Open connects to uri, pings the primary and ensures the unique email
// index on database.collection exists.
func Open(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Open: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Open: ping: %w", err)
	}

	col := client.Database(database).Collection(collection)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Open: create email index: %w", err)
	}

	return &Mongo{client: client, col: col}, nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Drop removes the whole collection. Only tests use it.
func (m *Mongo) Drop(ctx context.Context) error {
	return m.col.Drop(ctx)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// CreateStudent inserts a new document.
func (m *Mongo) CreateStudent(ctx context.Context, student types.Student) (types.Student, error) {
	doc := toDocument(student)
	ts := now()
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = ts
	doc.UpdatedAt = ts

	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("CreateStudent: insert: %w", err)
	}
	return doc.toStudent(), nil
}

// GetStudentByID fetches one document by its hex id.
func (m *Mongo) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Student{}, storage.ErrNotFound
	}

	var doc studentDocument
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: find: %w", err)
	}
	return doc.toStudent(), nil
}

// GetStudents returns every document sorted by createdAt then _id, both
// descending. ObjectIDs grow with insertion time, so _id breaks ties.
func (m *Mongo) GetStudents(ctx context.Context) ([]types.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: find: %w", err)
	}
	defer cur.Close(ctx)

	var docs []studentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("GetStudents: decode: %w", err)
	}

	students := make([]types.Student, 0, len(docs))
	for _, doc := range docs {
		students = append(students, doc.toStudent())
	}
	return students, nil
}

// UpdateStudentByID $sets every mutable field and returns the new document.
func (m *Mongo) UpdateStudentByID(ctx context.Context, id string, student types.Student) (types.Student, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Student{}, storage.ErrNotFound
	}

	doc := toDocument(student)
	set := bson.M{
		"name":             doc.Name,
		"email":            doc.Email,
		"phoneNumber":      doc.PhoneNumber,
		"codeforcesHandle": doc.CodeforcesHandle,
		"currentRating":    doc.CurrentRating,
		"maxRating":        doc.MaxRating,
		"syncSettings":     doc.SyncSettings,
		"lastSyncedAt":     doc.LastSyncedAt,
		"reminderCount":    doc.ReminderCount,
		"lastReminderSent": doc.LastReminderSent,
		"updatedAt":        now(),
	}

	var updated studentDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = m.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Student{}, storage.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: find and update: %w", err)
	}
	return updated.toStudent(), nil
}

// DeleteStudentByID removes one document.
func (m *Mongo) DeleteStudentByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return storage.ErrNotFound
	}

	res, err := m.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toDocument(s types.Student) studentDocument {
	return studentDocument{
		Name:             s.Name,
		Email:            s.Email,
		PhoneNumber:      s.PhoneNumber,
		CodeforcesHandle: s.CodeforcesHandle,
		CurrentRating:    s.CurrentRating,
		MaxRating:        s.MaxRating,
		SyncSettings: syncSettingsDoc{
			SyncTime:       s.SyncSettings.SyncTime,
			SyncFrequency:  s.SyncSettings.SyncFrequency,
			EmailReminders: s.SyncSettings.EmailReminders,
		},
		LastSyncedAt:     utcPtr(s.LastSyncedAt),
		ReminderCount:    s.ReminderCount,
		LastReminderSent: utcPtr(s.LastReminderSent),
	}
}

func (d studentDocument) toStudent() types.Student {
	return types.Student{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Email:            d.Email,
		PhoneNumber:      d.PhoneNumber,
		CodeforcesHandle: d.CodeforcesHandle,
		CurrentRating:    d.CurrentRating,
		MaxRating:        d.MaxRating,
		SyncSettings: types.SyncSettings{
			SyncTime:       d.SyncSettings.SyncTime,
			SyncFrequency:  d.SyncSettings.SyncFrequency,
			EmailReminders: d.SyncSettings.EmailReminders,
		},
		LastSyncedAt:     utcPtr(d.LastSyncedAt),
		ReminderCount:    d.ReminderCount,
		LastReminderSent: utcPtr(d.LastReminderSent),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
