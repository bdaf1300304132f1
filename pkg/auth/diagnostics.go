package auth

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	errs "notefetch/pkg/errors"
	"notefetch/pkg/notestore"
)

// ExplainAuthFailure writes a human explanation of a rejected Authenticate
// call, keyed on the parameter the service blamed. Errors that are not
// authentication failures get a single generic line.
func ExplainAuthFailure(w io.Writer, err error, host, consumerKey string) {
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindRemoteAuth {
		fmt.Fprintf(w, "Authentication failed: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Authentication failed (parameter: %s errorCode: %s)\n", orNone(e.Parameter), orNone(e.ErrorCode))

	displayHost := hostName(host)
	switch e.Parameter {
	case "consumerKey":
		if consumerKey == "" {
			fmt.Fprintln(w, "No consumer key is configured. Set service.consumer_key and service.consumer_secret")
			fmt.Fprintln(w, "in the config file, or NOTEFETCH_CONSUMER_KEY and NOTEFETCH_CONSUMER_SECRET.")
		} else {
			fmt.Fprintf(w, "Your consumer key was not accepted by %s\n", displayHost)
			fmt.Fprintln(w, "notefetch needs a client API key; web service keys only work with OAuth.")
		}
		fmt.Fprintf(w, "If you do not have an API key, request one from the developer portal of %s\n", displayHost)
	case "username":
		fmt.Fprintf(w, "You must authenticate using a username and password from %s\n", displayHost)
		if notestore.IsSandboxHost(host) {
			fmt.Fprintf(w, "Note that your production account will not work on %s,\n", displayHost)
			fmt.Fprintf(w, "you must register for a separate test account at https://%s/Registration.action\n", displayHost)
		}
	case "password":
		fmt.Fprintln(w, "The password that you entered is incorrect")
	case "authenticationToken":
		fmt.Fprintln(w, "The session token was rejected or has expired; run the fetch again to log in")
	}
}

func hostName(host string) string {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		return u.Host
	}
	return host
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
