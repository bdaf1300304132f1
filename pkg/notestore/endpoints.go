package notestore

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// EDAMVersionMajor and EDAMVersionMinor are the protocol version this client speaks
	EDAMVersionMajor = 1
	EDAMVersionMinor = 25

	// UserStorePath is the user store prefix under the service host
	UserStorePath = "/edam/user"

	// MaxNotesPerAccount is the most notes the service holds for one account
	MaxNotesPerAccount = 100000

	// DefaultPageSize is the number of notes requested per FindNotes call
	DefaultPageSize = 100

	// SandboxHost is the development service, where production accounts do not exist
	SandboxHost = "sandbox.notestore.dev"
)

// VersionURL returns the protocol version check endpoint
func VersionURL(host string) string {
	return strings.TrimRight(host, "/") + UserStorePath + "/version"
}

// AuthenticateURL returns the username/password authentication endpoint
func AuthenticateURL(host string) string {
	return strings.TrimRight(host, "/") + UserStorePath + "/authenticate"
}

// NotebooksURL returns the notebook listing endpoint of a note store
func NotebooksURL(noteStoreURL string) string {
	return strings.TrimRight(noteStoreURL, "/") + "/notebooks"
}

// NotesURL returns the paged note listing endpoint for one notebook
func NotesURL(noteStoreURL string, filter NoteFilter, offset, maxNotes int) string {
	params := url.Values{}
	if filter.NotebookGUID != "" {
		params.Set("notebook_guid", filter.NotebookGUID)
	}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("max_notes", strconv.Itoa(maxNotes))

	return fmt.Sprintf("%s/notes?%s", strings.TrimRight(noteStoreURL, "/"), params.Encode())
}

// ResourceDataURL returns the raw bytes endpoint for one resource
func ResourceDataURL(noteStoreURL, guid string) string {
	return fmt.Sprintf("%s/resources/%s/data", strings.TrimRight(noteStoreURL, "/"), url.PathEscape(guid))
}

// ClampPageSize keeps a requested page size within what the service accepts
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxNotesPerAccount {
		return MaxNotesPerAccount
	}
	return size
}

// DefaultUserAgent builds the User-Agent header from the client name and protocol version
func DefaultUserAgent(clientName string) string {
	return fmt.Sprintf("%s (EDAM/%d.%d)", clientName, EDAMVersionMajor, EDAMVersionMinor)
}

// IsSandboxHost reports whether host points at the development service
func IsSandboxHost(host string) bool {
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return strings.Contains(host, SandboxHost)
	}
	return u.Hostname() == SandboxHost
}
