// Package attestation requests Nitro attestation documents that commit to a
// signing key, and decodes them for verifiers.
package attestation

import (
	"github.com/hf/nsm"
	"github.com/hf/nsm/request"
	"github.com/hf/nsm/response"
)

// Session is one open conversation with the attestation device. It has the
// shape of *nsm.Session.
type Session interface {
	Send(req request.Request) (response.Response, error)
	Close() error
}

// Driver opens device sessions. The binder opens one session per request
// and always closes it.
type Driver interface {
	Open() (Session, error)
}

// NSMDriver talks to the Nitro Secure Module at /dev/nsm
type NSMDriver struct{}

// Open opens the default NSM session
func (NSMDriver) Open() (Session, error) {
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// DriverFunc adapts a function to the Driver interface
type DriverFunc func() (Session, error)

// Open calls f
func (f DriverFunc) Open() (Session, error) {
	return f()
}
