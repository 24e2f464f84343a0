package provider

import (
	"context"
	"errors"

	"github.com/libdns/libdns"
)

// ErrAuthFailed means the controller rejected the login credentials.
var ErrAuthFailed = errors.New("authentication failed")

// ErrSessionExpired means a previously established session was rejected
// mid-run. Unlike a single failed create this is not recoverable per record,
// the whole sync must abort.
var ErrSessionExpired = errors.New("session invalid or expired")

type Provider interface {
	Login(ctx context.Context) error
	GetRecords(ctx context.Context) ([]Record, error)
	GetDeviceHostnames(ctx context.Context) ([]string, error)
	CreateRecord(ctx context.Context, record Record) error
}

type Record struct {
	Name string
	Type string
	Data string
	TTL  int
}

func FromLibdns(r libdns.Record) Record {
	rr := r.RR()
	record := Record{
		Name: rr.Name,
		Type: rr.Type,
		Data: rr.Data,
		TTL:  int(rr.TTL.Seconds()),
	}
	return record
}
