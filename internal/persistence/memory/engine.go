package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/goevery/sharerelay/internal/persistence"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PersistenceEngine struct {
	mu    sync.RWMutex
	limit int

	shares    []persistence.Share
	favorites map[string]persistence.Favorite
}

func NewPersistenceEngine(limit int) *PersistenceEngine {
	if limit <= 0 {
		limit = persistence.DefaultRecentSharesLimit
	}

	return &PersistenceEngine{
		limit:     limit,
		favorites: make(map[string]persistence.Favorite),
	}
}

func (e *PersistenceEngine) Setup(ctx context.Context) error {
	return nil
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

	e.mu.Lock()
	defer e.mu.Unlock()

	e.shares = append([]persistence.Share{share}, e.shares...)
	if len(e.shares) > e.limit {
		e.shares = e.shares[:e.limit]
	}

	return share, nil
}

func (e *PersistenceEngine) RecentShares(ctx context.Context) ([]persistence.Share, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Clone(e.shares), nil
}

func (e *PersistenceEngine) ListFavorites(ctx context.Context) (map[string]persistence.Favorite, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return maps.Clone(e.favorites), nil
}

func (e *PersistenceEngine) SaveFavorite(ctx context.Context, favorite persistence.Favorite) (persistence.Favorite, error) {
	if err := favorite.Validate(); err != nil {
		return persistence.Favorite{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.favorites[favorite.TabUrl] = favorite

	return favorite, nil
}

func (e *PersistenceEngine) DeleteFavorite(ctx context.Context, tabUrl string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.favorites, tabUrl)

	return nil
}

func (e *PersistenceEngine) Close(ctx context.Context) error {
	return nil
}
