package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goevery/sharerelay/internal/ierr"
	"github.com/goevery/sharerelay/internal/persistence"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type RelayStatus interface {
	Running() bool
	ConnectionCount() int
}

type RecentSharesResponse struct {
	Shares []persistence.Share `json:"shares"`
}

type DeleteFavoriteRequest struct {
	TabUrl string `json:"tab_url"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Relay       bool   `json:"relay"`
	Connections int    `json:"connections"`
}

type RESTServer struct {
	logger *zap.Logger

	persistenceEngine persistence.Engine
	relayStatus       RelayStatus
}

func NewRESTServer(
	logger *zap.Logger,
	persistenceEngine persistence.Engine,
	relayStatus RelayStatus,
) *RESTServer {
	return &RESTServer{
		logger,
		persistenceEngine,
		relayStatus,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/live", s.getRecentShares).Methods("GET")
	router.HandleFunc("/live", s.postShare).Methods("POST")
	router.HandleFunc("/favorites", s.getFavorites).Methods("GET")
	router.HandleFunc("/favorites", s.postFavorite).Methods("POST")
	router.HandleFunc("/favorites", s.deleteFavorite).Methods("DELETE")
	router.HandleFunc("/healthz", s.getHealth).Methods("GET")
}

func (s *RESTServer) getRecentShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.persistenceEngine.RecentShares(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(shares) == 0 {
		s.writeError(w, ierr.New(ierr.ErrorCodeNotFound, errors.New("no recent shares")))
		return
	}

	s.writeJSON(w, http.StatusOK, RecentSharesResponse{Shares: shares})
}

func (s *RESTServer) postShare(w http.ResponseWriter, r *http.Request) {
	var shareRequest persistence.ShareRequest
	err := json.NewDecoder(r.Body).Decode(&shareRequest)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	share, err := s.persistenceEngine.AddShare(r.Context(), shareRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, share)
}

func (s *RESTServer) getFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.persistenceEngine.ListFavorites(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if favorites == nil {
		favorites = map[string]persistence.Favorite{}
	}

	s.writeJSON(w, http.StatusOK, favorites)
}

func (s *RESTServer) postFavorite(w http.ResponseWriter, r *http.Request) {
	var favorite persistence.Favorite
	err := json.NewDecoder(r.Body).Decode(&favorite)
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	favorite, err = s.persistenceEngine.SaveFavorite(r.Context(), favorite)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, favorite)
}

func (s *RESTServer) deleteFavorite(w http.ResponseWriter, r *http.Request) {
	var deleteRequest DeleteFavoriteRequest
	err := json.NewDecoder(r.Body).Decode(&deleteRequest)
	if err != nil || deleteRequest.TabUrl == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err = s.persistenceEngine.DeleteFavorite(r.Context(), deleteRequest.TabUrl)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *RESTServer) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Relay:       s.relayStatus.Running(),
		Connections: s.relayStatus.ConnectionCount(),
	})
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var handlerErr ierr.Error
	if !errors.As(err, &handlerErr) {
		s.logger.Error("error in rest handler", zap.Error(err))

		handlerErr = ierr.New(ierr.ErrorCodeInternal, errors.New("internal error"))
	}

	s.writeJSON(w, statusFromCode(handlerErr.Code), handlerErr)
}

func statusFromCode(code ierr.ErrorCode) int {
	switch code {
	case ierr.ErrorCodeInvalidArgument:
		return http.StatusBadRequest
	case ierr.ErrorCodeNotFound:
		return http.StatusNotFound
	case ierr.ErrorCodeAlreadyExists:
		return http.StatusConflict
	case ierr.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
