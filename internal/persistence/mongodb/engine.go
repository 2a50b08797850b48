package mongodb

import (
	"context"
	"time"

	"github.com/goevery/sharerelay/internal/persistence"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type PersistenceEngine struct {
	logger    *zap.Logger
	client    *mongo.Client
	shares    *mongo.Collection
	favorites *mongo.Collection
	limit     int
}

func NewPersistenceEngine(logger *zap.Logger, client *mongo.Client, databaseName string, limit int) *PersistenceEngine {
	if limit <= 0 {
		limit = persistence.DefaultRecentSharesLimit
	}

	database := client.Database(databaseName)

	return &PersistenceEngine{
		logger:    logger,
		client:    client,
		shares:    database.Collection("shares"),
		favorites: database.Collection("favorites"),
		limit:     limit,
	}
}

func (e *PersistenceEngine) Setup(ctx context.Context) error {
	timestampIndexModel := mongo.IndexModel{
		Keys: newestFirst,
	}

	_, err := e.shares.Indexes().CreateOne(ctx, timestampIndexModel)

	return err
}

func (e *PersistenceEngine) AddShare(ctx context.Context, request persistence.ShareRequest) (persistence.Share, error) {
	if err := request.Validate(); err != nil {
		return persistence.Share{}, err
	}

	share := persistence.Share{
		Id:         gonanoid.Must(),
		Url:        request.Url,
		ArtistName: request.ArtistName,
		SongName:   request.SongName,
		// BSON dates have millisecond precision.
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}

	_, err := e.shares.InsertOne(ctx, share)
	if err != nil {
		return persistence.Share{}, err
	}

	// The share is stored; a failed prune only delays trimming.
	err = e.prune(ctx)
	if err != nil {
		e.logger.Warn("failed to prune shares", zap.Error(err))
	}

	return share, nil
}

// newestFirst orders shares the same way for reads and pruning, with _id
// breaking ties between shares stored in the same millisecond.
var newestFirst = bson.D{
	{Key: "timestamp", Value: -1},
	{Key: "_id", Value: -1},
}

// prune deletes every share beyond the newest e.limit ones.
func (e *PersistenceEngine) prune(ctx context.Context) error {
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(e.limit)).
		SetProjection(bson.D{{Key: "_id", Value: 1}})

	result, err := e.shares.Find(ctx, bson.D{}, opts)
	if err != nil {
		return err
	}

	var stale []struct {
		Id string `bson:"_id"`
	}
	err = result.All(ctx, &stale)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	ids := make([]string, len(stale))
	for i, share := range stale {
		ids[i] = share.Id
	}

	_, err = e.shares.DeleteMany(ctx, bson.M{
		"_id": bson.M{"$in": ids},
	})

	return err
}

func (e *PersistenceEngine) RecentShares(ctx context.Context) ([]persistence.Share, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetLimit(int64(e.limit))

	result, err := e.shares.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	var shares []persistence.Share
	err = result.All(ctx, &shares)
	if err != nil {
		return nil, err
	}

	return shares, nil
}

func (e *PersistenceEngine) ListFavorites(ctx context.Context) (map[string]persistence.Favorite, error) {
	result, err := e.favorites.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}

	var favorites []persistence.Favorite
	err = result.All(ctx, &favorites)
	if err != nil {
		return nil, err
	}

	favoritesByUrl := make(map[string]persistence.Favorite, len(favorites))
	for _, favorite := range favorites {
		favoritesByUrl[favorite.TabUrl] = favorite
	}

	return favoritesByUrl, nil
}

func (e *PersistenceEngine) SaveFavorite(ctx context.Context, favorite persistence.Favorite) (persistence.Favorite, error) {
	if err := favorite.Validate(); err != nil {
		return persistence.Favorite{}, err
	}

	_, err := e.favorites.ReplaceOne(ctx,
		bson.M{"_id": favorite.TabUrl},
		favorite,
		options.Replace().SetUpsert(true))
	if err != nil {
		return persistence.Favorite{}, err
	}

	return favorite, nil
}

func (e *PersistenceEngine) DeleteFavorite(ctx context.Context, tabUrl string) error {
	_, err := e.favorites.DeleteOne(ctx, bson.M{"_id": tabUrl})

	return err
}

func (e *PersistenceEngine) Close(ctx context.Context) error {
	return e.client.Disconnect(ctx)
}
