// Package notestore is a client for the remote note service.
//
// The user store (under the configured host) checks the protocol version
// and exchanges username and password for a Session. The note store (at
// the URL returned by authentication) lists notebooks, pages through the
// notes of a notebook and serves the raw bytes of resources.
//
//	client := notestore.NewClientFromConfig(cfg, log)
//	ok, err := client.CheckVersion(ctx)
//	session, err := client.Authenticate(ctx, username, password)
//	notebooks, err := client.ListNotebooks(ctx, session)
//
// Every failure is a *errors.Error whose Kind tells authentication,
// not-found, protocol and transient service faults apart. Only transient
// service faults are retried, according to the client's retry policy.
package notestore
