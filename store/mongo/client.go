// Package mongo is the durable ConversationStore implementation (SPEC_FULL
// DOMAIN STACK), grounded on
// goadesign-goa-ai/features/memory/mongo/clients/mongo's narrow
// collection/singleResult/indexView interfaces wrapping the real driver
// types, so unit tests substitute fakes instead of requiring a live
// MongoDB for every test.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	defaultCollection = "conversations"
	defaultTimeout    = 5 * time.Second
)

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) error
	UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) error
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) error {
	_, err := c.coll.InsertOne(ctx, document, opts...)
	return err
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) error {
	_, err := c.coll.UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c mongoCollection) Indexes() indexView {
	return c.coll.Indexes()
}

func ensureIndexes(ctx context.Context, coll indexView) error {
	index := mongodriver.IndexModel{Keys: bson.D{{Key: "updated_at", Value: 1}}}
	_, err := coll.CreateOne(ctx, index)
	return err
}
