package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goevery/sharerelay/internal/persistence"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
)

type PersistenceEngine struct {
	client       *redis.Client
	sharesKey    string
	favoritesKey string
	limit        int
}

func NewPersistenceEngine(client *redis.Client, keyPrefix string, limit int) *PersistenceEngine {
	if limit <= 0 {
		limit = persistence.DefaultRecentSharesLimit
	}

	return &PersistenceEngine{
		client:       client,
		sharesKey:    keyPrefix + "shares",
		favoritesKey: keyPrefix + "favorites",
		limit:        limit,
	}
}

func (e *PersistenceEngine) Setup(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
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
		Timestamp:  time.Now().UTC(),
	}

	shareJson, err := json.Marshal(share)
	if err != nil {
		return persistence.Share{}, err
	}

	_, err = e.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, e.sharesKey, shareJson)
		pipe.LTrim(ctx, e.sharesKey, 0, int64(e.limit-1))

		return nil
	})
	if err != nil {
		return persistence.Share{}, err
	}

	return share, nil
}

func (e *PersistenceEngine) RecentShares(ctx context.Context) ([]persistence.Share, error) {
	values, err := e.client.LRange(ctx, e.sharesKey, 0, int64(e.limit-1)).Result()
	if err != nil {
		return nil, err
	}

	shares := make([]persistence.Share, 0, len(values))
	for _, value := range values {
		var share persistence.Share
		if err := json.Unmarshal([]byte(value), &share); err != nil {
			return nil, err
		}

		shares = append(shares, share)
	}

	return shares, nil
}

func (e *PersistenceEngine) ListFavorites(ctx context.Context) (map[string]persistence.Favorite, error) {
	values, err := e.client.HGetAll(ctx, e.favoritesKey).Result()
	if err != nil {
		return nil, err
	}

	favorites := make(map[string]persistence.Favorite, len(values))
	for tabUrl, value := range values {
		var favorite persistence.Favorite
		if err := json.Unmarshal([]byte(value), &favorite); err != nil {
			return nil, err
		}

		favorites[tabUrl] = favorite
	}

	return favorites, nil
}

func (e *PersistenceEngine) SaveFavorite(ctx context.Context, favorite persistence.Favorite) (persistence.Favorite, error) {
	if err := favorite.Validate(); err != nil {
		return persistence.Favorite{}, err
	}

	favoriteJson, err := json.Marshal(favorite)
	if err != nil {
		return persistence.Favorite{}, err
	}

	err = e.client.HSet(ctx, e.favoritesKey, favorite.TabUrl, favoriteJson).Err()
	if err != nil {
		return persistence.Favorite{}, err
	}

	return favorite, nil
}

func (e *PersistenceEngine) DeleteFavorite(ctx context.Context, tabUrl string) error {
	return e.client.HDel(ctx, e.favoritesKey, tabUrl).Err()
}

func (e *PersistenceEngine) Close(ctx context.Context) error {
	return e.client.Close()
}
