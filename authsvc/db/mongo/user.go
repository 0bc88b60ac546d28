package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/ichigozero/focusflow/authsvc"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	libmongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollection = "users"

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d userDocument) user() authsvc.User {
	return authsvc.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type userRepository struct {
	users *libmongo.Collection
}

func NewUserRepository(db *libmongo.Database) authsvc.UserRepository {
	return &userRepository{users: db.Collection(userCollection)}
}

// EnsureUserIndexes creates the unique indexes the repository relies on to
// reject duplicate usernames and emails.
func EnsureUserIndexes(ctx context.Context, db *libmongo.Database) error {
	_, err := db.Collection(userCollection).Indexes().CreateMany(ctx, []libmongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *userRepository) Create(ctx context.Context, u authsvc.User) (authsvc.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := r.users.InsertOne(ctx, doc)
	if libmongo.IsDuplicateKeyError(err) {
		return authsvc.User{}, authsvc.ErrUserExists
	}
	if err != nil {
		return authsvc.User{}, err
	}

	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.user(), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (authsvc.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, libmongo.ErrNoDocuments) {
		return authsvc.User{}, authsvc.ErrUserNotFound
	}
	if err != nil {
		return authsvc.User{}, err
	}
	return doc.user(), nil
}
