// Package testserver runs an in-process fake of the note service for tests.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"notefetch/pkg/notestore"
)

const noteStorePath = "/shard/s1/notestore"

// NotesCall records one FindNotes request
type NotesCall struct {
	NotebookGUID string
	Offset       int
	MaxNotes     int
}

type failure struct {
	status    int
	errorCode string
	remaining int // <= 0 means always
}

// Server is a fake note service backed by httptest
type Server struct {
	*httptest.Server

	Username    string
	Password    string
	ConsumerKey string
	Token       string

	mu            sync.Mutex
	compatible    bool
	notebooks     []notestore.Notebook
	notes         map[string][]notestore.Note
	data          map[string][]byte
	notebooksFail *failure
	notesFail     map[string]*failure
	resourceFail  map[string]*failure
	notesCalls    []NotesCall
	dataFetches   map[string]int
	userAgents    []string
}

// New starts a fake service accepting user/secret with consumer key "test-key"
func New() *Server {
	s := &Server{
		Username:     "user",
		Password:     "secret",
		ConsumerKey:  "test-key",
		Token:        "S=s1:U=1:token",
		compatible:   true,
		notes:        make(map[string][]notestore.Note),
		data:         make(map[string][]byte),
		notesFail:    make(map[string]*failure),
		resourceFail: make(map[string]*failure),
		dataFetches:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /edam/user/version", s.handleVersion)
	mux.HandleFunc("POST /edam/user/authenticate", s.handleAuthenticate)
	mux.HandleFunc("GET "+noteStorePath+"/notebooks", s.authorized(s.handleNotebooks))
	mux.HandleFunc("GET "+noteStorePath+"/notes", s.authorized(s.handleNotes))
	mux.HandleFunc("GET "+noteStorePath+"/resources/{guid}/data", s.authorized(s.handleResourceData))

	s.Server = httptest.NewServer(s.recordUserAgent(mux))
	return s
}

// NoteStoreURL is the note store address handed out by Authenticate
func (s *Server) NoteStoreURL() string {
	return s.URL + noteStorePath
}

// Session returns a session valid for this server without authenticating
func (s *Server) Session() notestore.Session {
	return notestore.Session{
		Token:        s.Token,
		NoteStoreURL: s.NoteStoreURL(),
		Username:     s.Username,
		UserID:       1,
	}
}

// AddNotebook registers a notebook and its notes, in order
func (s *Server) AddNotebook(nb notestore.Notebook, notes ...notestore.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notebooks = append(s.notebooks, nb)
	for i := range notes {
		notes[i].NotebookGUID = nb.GUID
		for j := range notes[i].Resources {
			notes[i].Resources[j].NoteGUID = notes[i].GUID
		}
	}
	s.notes[nb.GUID] = append(s.notes[nb.GUID], notes...)
}

// SetResourceData sets the bytes served for a resource
func (s *Server) SetResourceData(guid string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[guid] = data
}

// SetCompatible controls the answer to the protocol version check
func (s *Server) SetCompatible(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compatible = ok
}

// FailNotebooks makes the notebook listing fail with status
func (s *Server) FailNotebooks(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebooksFail = &failure{status: status}
}

// FailNotes makes note listing for one notebook fail with status
func (s *Server) FailNotes(notebookGUID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notesFail[notebookGUID] = &failure{status: status}
}

// FailResource makes the next times data fetches of guid fail with status;
// times <= 0 fails every fetch
func (s *Server) FailResource(guid string, status int, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resourceFail[guid] = &failure{status: status, remaining: times}
}

// NotesCalls returns every FindNotes request seen so far
func (s *Server) NotesCalls() []NotesCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NotesCall(nil), s.notesCalls...)
}

// DataFetches returns how many times the bytes of guid were requested
func (s *Server) DataFetches(guid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataFetches[guid]
}

// TotalDataFetches returns the number of resource data requests of any guid
func (s *Server) TotalDataFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.dataFetches {
		total += n
	}
	return total
}

// UserAgents returns the User-Agent header of every request
func (s *Server) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

func (s *Server) recordUserAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.userAgents = append(s.userAgents, r.UserAgent())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "AUTH_EXPIRED", "authenticationToken", "invalid or expired token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName string `json:"client_name"`
		Major      int    `json:"edam_version_major"`
		Minor      int    `json:"edam_version_minor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_DATA_FORMAT", "", err.Error())
		return
	}

	s.mu.Lock()
	compatible := s.compatible && req.Major == notestore.EDAMVersionMajor
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"compatible": compatible})
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		ConsumerKey string `json:"consumer_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_DATA_FORMAT", "", err.Error())
		return
	}

	switch {
	case req.ConsumerKey != s.ConsumerKey:
		writeError(w, http.StatusUnauthorized, "INVALID_AUTH", "consumerKey", "consumer key not recognized")
	case req.Username != s.Username:
		writeError(w, http.StatusUnauthorized, "INVALID_AUTH", "username", "username not found")
	case req.Password != s.Password:
		writeError(w, http.StatusUnauthorized, "INVALID_AUTH", "password", "incorrect password")
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authentication_token": s.Token,
			"note_store_url":       s.NoteStoreURL(),
			"expiration":           int64(4102444800000),
			"user": map[string]interface{}{
				"id":       1,
				"username": s.Username,
			},
		})
	}
}

func (s *Server) handleNotebooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.notebooksFail
	notebooks := append([]notestore.Notebook{}, s.notebooks...)
	s.mu.Unlock()

	if fail != nil {
		writeError(w, fail.status, "", "", "")
		return
	}
	writeJSON(w, http.StatusOK, notebooks)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guid := q.Get("notebook_guid")
	offset, _ := strconv.Atoi(q.Get("offset"))
	maxNotes, _ := strconv.Atoi(q.Get("max_notes"))

	s.mu.Lock()
	s.notesCalls = append(s.notesCalls, NotesCall{NotebookGUID: guid, Offset: offset, MaxNotes: maxNotes})
	fail := s.notesFail[guid]
	all := s.notes[guid]
	s.mu.Unlock()

	if fail != nil {
		writeError(w, fail.status, "", "", "")
		return
	}

	page := []notestore.Note{}
	if offset < len(all) {
		end := offset + maxNotes
		if maxNotes <= 0 || end > len(all) {
			end = len(all)
		}
		page = all[offset:end]
	}

	writeJSON(w, http.StatusOK, notestore.NoteList{
		StartIndex: offset,
		TotalNotes: len(all),
		Notes:      page,
	})
}

func (s *Server) handleResourceData(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	s.mu.Lock()
	s.dataFetches[guid]++
	fail := s.resourceFail[guid]
	if fail != nil && fail.remaining > 0 {
		fail.remaining--
		if fail.remaining == 0 {
			delete(s.resourceFail, guid)
		}
	}
	data, ok := s.data[guid]
	s.mu.Unlock()

	if fail != nil {
		writeError(w, fail.status, fail.errorCode, "", "")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "", "Resource.guid", "resource "+guid+" not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, parameter, message string) {
	if message == "" {
		message = strings.ToLower(http.StatusText(status))
	}
	writeJSON(w, status, map[string]string{
		"error_code": code,
		"parameter":  parameter,
		"message":    message,
	})
}
