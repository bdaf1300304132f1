// Package auth stores note service credentials and explains rejected logins.
//
// A Manager tries its CredentialStores in order: the system keychain
// (go-keyring), an AES-GCM encrypted file under the user config directory,
// and finally the NOTEFETCH_USERNAME / NOTEFETCH_PASSWORD environment
// variables, which are read-only.
package auth
