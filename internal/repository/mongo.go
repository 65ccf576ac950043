package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

const (
	usersCollection     = "users"
	addressesCollection = "addresses"
	ordersCollection    = "orders"
)

// MongoRepository хранит пользователей, адреса и заказы документами MongoDB.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	Phone        string    `bson:"phone,omitempty"`
	PhotoURL     string    `bson:"photo_url,omitempty"`
	PasswordHash []byte    `bson:"password_hash,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

type addressDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Label     string    `bson:"label"`
	Street    string    `bson:"street"`
	City      string    `bson:"city"`
	State     string    `bson:"state"`
	ZipCode   string    `bson:"zip_code"`
	Latitude  *float64  `bson:"latitude,omitempty"`
	Longitude *float64  `bson:"longitude,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type orderDoc struct {
	ID               string         `bson:"_id"`
	UserID           string         `bson:"user_id"`
	PickupAddress    model.Address  `bson:"pickup_address"`
	DeliveryAddress  model.Address  `bson:"delivery_address"`
	Services         []string       `bson:"services"`
	PickupTimeSlot   model.TimeSlot `bson:"pickup_time_slot"`
	DeliveryTimeSlot model.TimeSlot `bson:"delivery_time_slot"`
	Status           string         `bson:"status"`
	TotalPrice       int64          `bson:"total_price"`
	Notes            string         `bson:"notes,omitempty"`
	CreatedAt        time.Time      `bson:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

// NewMongoRepository подключается к MongoDB и создаёт необходимые индексы.
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	r := &MongoRepository{client: client, db: client.Database(database)}

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return r, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("email_unique").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err = r.db.Collection(addressesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("user_id_created_at"),
	})
	if err != nil {
		return fmt.Errorf("create addresses index: %w", err)
	}

	_, err = r.db.Collection(ordersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("user_id_created_at_desc"),
	})
	if err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}

	return nil
}

// Ping проверяет доступность MongoDB.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close отключается от MongoDB.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// CreateUser создаёт нового пользователя.
func (r *MongoRepository) CreateUser(ctx context.Context, user model.User, passwordHash []byte) (model.User, error) {
	user.ID = uuid.NewString()

	_, err := r.db.Collection(usersCollection).InsertOne(ctx, userDoc{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Phone:        user.Phone,
		PhotoURL:     user.PhotoURL,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail возвращает пользователя и хеш его пароля.
func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, []byte, error) {
	doc, err := r.findUser(ctx, bson.M{"email": email})
	if err != nil {
		return nil, nil, err
	}
	u := doc.user()
	return &u, doc.PasswordHash, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *MongoRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.findUser(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	u := doc.user()
	return &u, nil
}

func (r *MongoRepository) findUser(ctx context.Context, filter bson.M) (*userDoc, error) {
	var doc userDoc
	err := r.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &doc, nil
}

func (d userDoc) user() model.User {
	return model.User{
		ID:       d.ID,
		Email:    d.Email,
		Name:     d.Name,
		Phone:    d.Phone,
		PhotoURL: d.PhotoURL,
	}
}

// InsertAddress сохраняет новый адрес пользователя.
func (r *MongoRepository) InsertAddress(ctx context.Context, userID string, draft model.AddressDraft) (string, error) {
	doc := addressDoc{
		ID:        uuid.NewString(),
		UserID:    userID,
		Label:     draft.Label,
		Street:    draft.Street,
		City:      draft.City,
		State:     draft.State,
		ZipCode:   draft.ZipCode,
		Latitude:  draft.Latitude,
		Longitude: draft.Longitude,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.db.Collection(addressesCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert address: %w", err)
	}
	return doc.ID, nil
}

// GetAddressesByUser возвращает адреса пользователя в порядке добавления.
func (r *MongoRepository) GetAddressesByUser(ctx context.Context, userID string) ([]model.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.db.Collection(addressesCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find addresses: %w", err)
	}
	defer cur.Close(ctx)

	var docs []addressDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}

	res := make([]model.Address, 0, len(docs))
	for _, d := range docs {
		res = append(res, model.Address{
			ID:        d.ID,
			Label:     d.Label,
			Street:    d.Street,
			City:      d.City,
			State:     d.State,
			ZipCode:   d.ZipCode,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
		})
	}
	return res, nil
}

// InsertOrder сохраняет заказ со встроенными снимками адресов и интервалов.
func (r *MongoRepository) InsertOrder(ctx context.Context, o model.Order) (string, error) {
	doc := orderDoc{
		ID:               uuid.NewString(),
		UserID:           o.UserID,
		PickupAddress:    o.PickupAddress,
		DeliveryAddress:  o.DeliveryAddress,
		Services:         serviceStrings(o.Services),
		PickupTimeSlot:   o.PickupTimeSlot,
		DeliveryTimeSlot: o.DeliveryTimeSlot,
		Status:           string(o.Status),
		TotalPrice:       toCents(o.TotalPrice),
		Notes:            o.Notes,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}

	if _, err := r.db.Collection(ordersCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return doc.ID, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с самых новых.
func (r *MongoRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := r.db.Collection(ordersCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	res := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		res = append(res, model.Order{
			ID:               d.ID,
			UserID:           d.UserID,
			PickupAddress:    d.PickupAddress,
			DeliveryAddress:  d.DeliveryAddress,
			Services:         serviceIDs(d.Services),
			PickupTimeSlot:   d.PickupTimeSlot,
			DeliveryTimeSlot: d.DeliveryTimeSlot,
			Status:           model.OrderStatus(d.Status),
			TotalPrice:       fromCents(d.TotalPrice),
			Notes:            d.Notes,
			CreatedAt:        d.CreatedAt,
			UpdatedAt:        d.UpdatedAt,
		})
	}
	return res, nil
}
