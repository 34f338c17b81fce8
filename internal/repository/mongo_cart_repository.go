package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/orders/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartItemDocument struct {
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
}

type cartDocument struct {
	ID         string             `bson:"_id"`
	CustomerID string             `bson:"customer_id"`
	Status     string             `bson:"status"`
	Items      []cartItemDocument `bson:"items"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{
		collection: db.Collection("carts"),
	}
}

// Save replaces the whole cart document, inserting it when absent.
func (m *MongoCartRepository) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	doc := toCartDocument(cart.Snapshot())

	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := m.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoCartRepository) FindByID(ctx context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	return m.findOne(ctx, bson.M{"_id": id.String()})
}

// FindByCustomerID returns the customer's most recently updated active cart.
func (m *MongoCartRepository) FindByCustomerID(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	filter := bson.M{
		"customer_id": customerID.String(),
		"status":      domain.CartStatusActive.String(),
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return m.findOne(ctx, filter, opts)
}

func (m *MongoCartRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.ShoppingCart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, filter, opts...).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromCartDocument(doc)
}

func (m *MongoCartRepository) Delete(ctx context.Context, id domain.CartID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func toCartDocument(s domain.CartSnapshot) cartDocument {
	items := make([]cartItemDocument, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, cartItemDocument{
			ProductID: it.ProductID().String(),
			Quantity:  it.Quantity().Int(),
		})
	}
	return cartDocument{
		ID:         s.ID.String(),
		CustomerID: s.CustomerID.String(),
		Status:     s.Status.String(),
		Items:      items,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func fromCartDocument(doc cartDocument) (*domain.ShoppingCart, error) {
	items := make([]domain.CartItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		productID, err := domain.ProductIDFromString(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("cart %s: %w", doc.ID, err)
		}
		quantity, err := domain.NewQuantity(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("cart %s: %w", doc.ID, err)
		}
		items = append(items, domain.NewCartItem(productID, quantity))
	}

	return domain.ReconstituteCart(domain.CartSnapshot{
		ID:         domain.CartID(doc.ID),
		CustomerID: domain.CustomerID(doc.CustomerID),
		Status:     domain.CartStatus(doc.Status),
		Items:      items,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	})
}
