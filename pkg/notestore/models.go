package notestore

import "time"

// Session is the result of a successful authentication. It is created once
// and passed by value into every note store call.
type Session struct {
	Token        string
	NoteStoreURL string
	Username     string
	UserID       int64
	Expires      time.Time
}

// Notebook is a named container of notes
type Notebook struct {
	GUID    string `json:"guid"`
	Name    string `json:"name"`
	Default bool   `json:"default_notebook"`
}

// Note is a single note with its attached resources
type Note struct {
	GUID         string     `json:"guid"`
	Title        string     `json:"title"`
	NotebookGUID string     `json:"notebook_guid"`
	Resources    []Resource `json:"resources"`
}

// Resource references binary content attached to a note. The bytes
// themselves are fetched separately with GetResourceData.
type Resource struct {
	GUID       string             `json:"guid"`
	NoteGUID   string             `json:"note_guid"`
	Mime       string             `json:"mime"`
	Attributes ResourceAttributes `json:"attributes"`
	Data       ResourceData       `json:"data"`
}

// ResourceAttributes holds the declared metadata of a resource
type ResourceAttributes struct {
	FileName  string `json:"file_name"`
	SourceURL string `json:"source_url,omitempty"`
}

// ResourceData describes the remote bytes without carrying them
type ResourceData struct {
	Size     int64  `json:"size"`
	BodyHash string `json:"body_hash,omitempty"`
}

// NoteFilter restricts FindNotes to one notebook
type NoteFilter struct {
	NotebookGUID string
}

// NoteList is one page of FindNotes results
type NoteList struct {
	StartIndex int    `json:"start_index"`
	TotalNotes int    `json:"total_notes"`
	Notes      []Note `json:"notes"`
}

// Wire bodies for the user store

type versionRequest struct {
	ClientName       string `json:"client_name"`
	EDAMVersionMajor int    `json:"edam_version_major"`
	EDAMVersionMinor int    `json:"edam_version_minor"`
}

type versionResponse struct {
	Compatible bool `json:"compatible"`
}

type authenticateRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

type authenticateResponse struct {
	AuthenticationToken string `json:"authentication_token"`
	NoteStoreURL        string `json:"note_store_url"`
	// Expiration is milliseconds since the epoch
	Expiration int64 `json:"expiration"`
	User       struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// errorBody is what the service returns alongside non-2xx statuses
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}
