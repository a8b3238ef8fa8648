package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"wordguard/pkg/filter"
	"wordguard/pkg/models"
)

const (
	maxBodyBytes       = 4 << 20
	maxBatchTexts      = 1000
	defaultReplacement = '*'
)

// WordStore persists vocabulary changes made through the API.
type WordStore interface {
	AddWords(ctx context.Context, words []string) error
	RemoveWords(ctx context.Context, words []string) error
}

type API struct {
	ServiceName string

	r     *mux.Router
	f     *filter.Filter
	kw    *kafka.Writer
	store WordStore
}

func New(name string, f *filter.Filter, kafkaWriter *kafka.Writer) (*API, error) {
	if f == nil {
		return nil, errors.New("filter is required")
	}

	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		f:           f,
		kw:          kafkaWriter,
	}
	api.endpoints()

	return &api, nil
}

// WithStore makes vocabulary changes persistent.
func (api *API) WithStore(s WordStore) *API {
	api.store = s
	return api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)

	api.r.HandleFunc("/check", api.checkComment).Methods(http.MethodPost)
	api.r.HandleFunc("/find", api.findHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/batch", api.batchHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/replace", api.replaceHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/filter", api.filterHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/validate", api.validateHandler).Methods(http.MethodPost)

	api.r.HandleFunc("/words", api.listWordsHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/words", api.addWordsHandler).Methods(http.MethodPost)
	api.r.HandleFunc("/words", api.removeWordsHandler).Methods(http.MethodDelete)

	api.r.HandleFunc("/noise", api.getNoiseHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/noise", api.setNoiseHandler).Methods(http.MethodPut)

	api.r.HandleFunc("/stats", api.statsHandler).Methods(http.MethodGet)

	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}
}

// checkComment answers 200 for a clean comment and 422 for one containing
// vocabulary terms. Both carry the verdict.
func (api *API) checkComment(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var comment models.Comment
	if !decodeBody(w, r, &comment, "checkComment", sID) {
		return
	}

	verdict := models.NewVerdict(comment, api.f.FindAll(comment.Text))
	status := http.StatusOK
	if verdict.Banned {
		status = http.StatusUnprocessableEntity
		log.Infof("[checkComment][%s] comment %v rejected: %v", sID, comment.ID, verdict.Words)
	}

	writeJSON(w, status, verdict, "checkComment", sID)
}

func (api *API) findHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req TextRequest
	if !decodeBody(w, r, &req, "findHandler", sID) {
		return
	}

	layered, _ := strconv.ParseBool(r.URL.Query().Get("layered"))
	var words []string
	if layered {
		words = api.f.FindAllLayered(req.Text)
	} else {
		words = api.f.FindAll(req.Text)
	}

	writeJSON(w, http.StatusOK, WordsResponse{Words: nonNil(words)}, "findHandler", sID)
}

func (api *API) batchHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req BatchRequest
	if !decodeBody(w, r, &req, "batchHandler", sID) {
		return
	}
	if len(req.Texts) > maxBatchTexts {
		http.Error(w, "Too many texts in batch", http.StatusBadRequest)
		log.Debugf("[batchHandler][%s] batch of %d texts rejected", sID, len(req.Texts))
		return
	}

	results := api.f.FindAllBatch(req.Texts)
	for i := range results {
		results[i] = nonNil(results[i])
	}

	writeJSON(w, http.StatusOK, BatchResponse{Results: results}, "batchHandler", sID)
}

func (api *API) replaceHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req TextRequest
	if !decodeBody(w, r, &req, "replaceHandler", sID) {
		return
	}

	repl := defaultReplacement
	if req.Replacement != "" {
		if utf8.RuneCountInString(req.Replacement) != 1 {
			http.Error(w, "Replacement must be a single character", http.StatusBadRequest)
			log.Debugf("[replaceHandler][%s] invalid replacement %q", sID, req.Replacement)
			return
		}
		repl, _ = utf8.DecodeRuneInString(req.Replacement)
	}

	writeJSON(w, http.StatusOK, TextResponse{Text: api.f.Replace(req.Text, repl)}, "replaceHandler", sID)
}

func (api *API) filterHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req TextRequest
	if !decodeBody(w, r, &req, "filterHandler", sID) {
		return
	}

	writeJSON(w, http.StatusOK, TextResponse{Text: api.f.Filter(req.Text)}, "filterHandler", sID)
}

func (api *API) validateHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req TextRequest
	if !decodeBody(w, r, &req, "validateHandler", sID) {
		return
	}

	found, word := api.f.Validate(req.Text)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: !found, Word: word}, "validateHandler", sID)
}

func (api *API) listWordsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	writeJSON(w, http.StatusOK, WordsResponse{Words: nonNil(api.f.Words())}, "listWordsHandler", sID)
}

func (api *API) addWordsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req WordsRequest
	if !decodeBody(w, r, &req, "addWordsHandler", sID) {
		return
	}
	if len(req.Words) == 0 {
		http.Error(w, "Empty words list", http.StatusBadRequest)
		log.Debugf("[addWordsHandler][%s] request with empty words list", sID)
		return
	}

	if api.store != nil {
		if err := api.store.AddWords(r.Context(), req.Words); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[addWordsHandler][%s] AddWords() returned error: %v", sID, err)
			return
		}
	}
	api.f.AddWords(req.Words...)
	log.Infof("[addWordsHandler][%s] added %d words", sID, len(req.Words))

	writeJSON(w, http.StatusCreated, WordsResponse{Words: nonNil(api.f.Words())}, "addWordsHandler", sID)
}

func (api *API) removeWordsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req WordsRequest
	if !decodeBody(w, r, &req, "removeWordsHandler", sID) {
		return
	}

	if api.store != nil {
		if err := api.store.RemoveWords(r.Context(), req.Words); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[removeWordsHandler][%s] RemoveWords() returned error: %v", sID, err)
			return
		}
	}
	api.f.RemoveWords(req.Words...)
	log.Infof("[removeWordsHandler][%s] removed %d words", sID, len(req.Words))

	writeJSON(w, http.StatusOK, WordsResponse{Words: nonNil(api.f.Words())}, "removeWordsHandler", sID)
}

func (api *API) getNoiseHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	writeJSON(w, http.StatusOK, NoiseRequest{Pattern: api.f.NoisePattern()}, "getNoiseHandler", sID)
}

func (api *API) setNoiseHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req NoiseRequest
	if !decodeBody(w, r, &req, "setNoiseHandler", sID) {
		return
	}

	if err := api.f.SetNoisePattern(req.Pattern); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Debugf("[setNoiseHandler][%s] %v", sID, err)
		return
	}

	writeJSON(w, http.StatusOK, NoiseRequest{Pattern: api.f.NoisePattern()}, "setNoiseHandler", sID)
}

func (api *API) statsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	writeJSON(w, http.StatusOK, api.f.Stats(), "statsHandler", sID)
}

// decodeBody decodes the JSON request body into v. On failure it answers
// 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, handler, sID string) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Errorf("[%s][%s] failed to decode request body: %v", handler, sID, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any, handler, sID string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[%s][%s] failed to encode response data: %v", handler, sID, err)
		return
	}
	log.Debugf("[%s][%s] response sent with status %d", handler, sID, status)
}

func nonNil(words []string) []string {
	if words == nil {
		return []string{}
	}
	return words
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
