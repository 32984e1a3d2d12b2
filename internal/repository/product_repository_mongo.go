package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sandeepkv93/catalog-gateway-platform/internal/domain"
	"github.com/sandeepkv93/catalog-gateway-platform/internal/observability"
)

const mongoStoreLabel = "mongo"

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{ID: d.ID.Hex(), Name: d.Name, Description: d.Description, Price: d.Price}
}

// MongoProductRepository stores one document per product. Ids that are not
// valid ObjectID hex cannot name a stored document and are reported as
// ErrProductNotFound.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(coll *mongo.Collection) *MongoProductRepository {
	return &MongoProductRepository{coll: coll}
}

func (r *MongoProductRepository) Create(ctx context.Context, product *domain.Product) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, mongoStoreLabel, "create", outcomeOf(err)) }()

	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	product.ID = doc.ID.Hex()
	return nil
}

func (r *MongoProductRepository) List(ctx context.Context) (_ []domain.Product, err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, mongoStoreLabel, "list", outcomeOf(err)) }()

	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// FindByID reads back one record. The catalog service never needs a single
// lookup, so it sits on the adapter rather than on ProductRepository.
func (r *MongoProductRepository) FindByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, mongoStoreLabel, "find_by_id", outcomeOf(err)) }()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *MongoProductRepository) Update(ctx context.Context, product *domain.Product) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, mongoStoreLabel, "update", outcomeOf(err)) }()

	oid, err := primitive.ObjectIDFromHex(product.ID)
	if err != nil {
		return ErrProductNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
	}})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *MongoProductRepository) DeleteByID(ctx context.Context, id string) (err error) {
	defer func() { observability.RecordRepositoryOperation(ctx, mongoStoreLabel, "delete_by_id", outcomeOf(err)) }()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrProductNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
