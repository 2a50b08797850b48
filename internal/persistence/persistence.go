package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/sharerelay/internal/ierr"
)

const DefaultRecentSharesLimit = 20

// Engine stores the recent shares list and the favorites map. Shares are
// returned newest first and capped by the engine's limit; favorites are keyed
// by tab URL.
type Engine interface {
	Setup(ctx context.Context) error
	AddShare(ctx context.Context, request ShareRequest) (Share, error)
	RecentShares(ctx context.Context) ([]Share, error)
	ListFavorites(ctx context.Context) (map[string]Favorite, error)
	SaveFavorite(ctx context.Context, favorite Favorite) (Favorite, error)
	DeleteFavorite(ctx context.Context, tabUrl string) error
	Close(ctx context.Context) error
}

type ShareRequest struct {
	Url        string `json:"url"`
	ArtistName string `json:"artist_name"`
	SongName   string `json:"song_name"`
}

func (r ShareRequest) Validate() error {
	if r.Url == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("url is required"))
	}

	return nil
}

type Share struct {
	Id         string    `json:"id" bson:"_id"`
	Url        string    `json:"url" bson:"url"`
	ArtistName string    `json:"artist_name" bson:"artistName"`
	SongName   string    `json:"song_name" bson:"songName"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

type Favorite struct {
	TabUrl     string `json:"tab_url" bson:"_id"`
	ArtistName string `json:"artist_name" bson:"artistName"`
	Song       string `json:"song" bson:"song"`
	Type       string `json:"type,omitempty" bson:"type,omitempty"`
	Rating     string `json:"rating,omitempty" bson:"rating,omitempty"`
}

func (f Favorite) Validate() error {
	if f.TabUrl == "" {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("tab_url is required"))
	}

	return nil
}
