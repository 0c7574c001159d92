package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkoval-dev/skycast/internal/model"
)

// UserRepo persists user documents in the `users` collection. Favourites and
// refresh tokens are embedded arrays mutated with $push/$pull so every
// operation is a single-document atomic write; the collection's own
// concurrency guarantees give us the conditional-update semantics the
// session layer relies on.
type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index. Sparse, because OAuth-only
// accounts may have no email at all. Called once at startup.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

// Create inserts a new user and returns its id as a hex string. A collision
// on the email index is reported as ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (string, error) {
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Favourites == nil {
		u.Favourites = []model.Favourite{}
	}
	if u.RefreshTokens == nil {
		u.RefreshTokens = []model.RefreshToken{}
	}
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", ErrNotFound
	}
	return oid.Hex(), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID fetches a user by its hex id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByProvider fetches a user by a provider-scoped identifier. The provider
// name selects which id field to match.
func (r *UserRepo) GetByProvider(ctx context.Context, field, providerID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{field: providerID})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate lists the fields a profile update may set. Nil pointers are
// left untouched. PasswordHash must already be hashed; the repository never
// re-hashes on unrelated updates.
type ProfileUpdate struct {
	Name         *string
	Surname      *string
	Email        *string
	PasswordHash *string
}

// UpdateProfile applies a partial update to the user document.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Surname != nil {
		set["surname"] = *upd.Surname
	}
	if upd.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAvatarURL stores the public URL returned by the image host.
func (r *UserRepo) SetAvatarURL(ctx context.Context, id, url string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"avatar_url": url, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProviderID links a provider-scoped identifier to an existing account.
func (r *UserRepo) SetProviderID(ctx context.Context, id, field, providerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{field: providerID, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user document. Embedded refresh tokens die with it, so
// deletion revokes every outstanding session.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- favourites -----

// ListFavourites returns the user's favourite cities.
func (r *UserRepo) ListFavourites(ctx context.Context, id string) ([]model.Favourite, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Favourites, nil
}

// AddFavourite appends a favourite-city entry. Duplicates are allowed.
func (r *UserRepo) AddFavourite(ctx context.Context, id, city string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	fav := model.Favourite{City: city, CreatedAt: time.Now().UTC()}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"favourites": fav}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFavourite pulls every favourite matching the city name. Removing a
// city that is not present is a no-op, not an error.
func (r *UserRepo) RemoveFavourite(ctx context.Context, id, city string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$pull": bson.M{"favourites": bson.M{"city": city}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ----- refresh tokens -----

// PushRefreshToken appends a token hash to the user's revocable list.
func (r *UserRepo) PushRefreshToken(ctx context.Context, id, tokenHash string, exp time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	entry := model.RefreshToken{TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: time.Now().UTC()}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"refresh_tokens": entry}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken replaces the stored entry for oldHash with a fresh one
// in a single conditional update: the filter matches the user AND the old
// hash, and the positional operator overwrites exactly that element. Two
// concurrent rotations presenting the same token therefore cannot both
// succeed; the loser matches nothing and gets ErrTokenNotFound. The document
// is never left with the old entry consumed and no replacement written.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string, newExp time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	entry := model.RefreshToken{TokenHash: newHash, ExpiresAt: newExp, CreatedAt: time.Now().UTC()}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "refresh_tokens.token_hash": oldHash},
		bson.M{"$set": bson.M{"refresh_tokens.$": entry}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// PullRefreshToken removes a single token hash from the list. Pulling an
// absent hash succeeds silently, which makes logout idempotent.
func (r *UserRepo) PullRefreshToken(ctx context.Context, id, tokenHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$pull": bson.M{"refresh_tokens": bson.M{"token_hash": tokenHash}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearRefreshTokens empties the list, logging the user out everywhere.
func (r *UserRepo) ClearRefreshTokens(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateByID(ctx, oid, bson.M{
		"$set": bson.M{"refresh_tokens": []model.RefreshToken{}},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
