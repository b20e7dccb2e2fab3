// Package ipc implements Adasa's client/daemon transport: a length-prefixed
// framed JSON protocol over a Unix domain socket, per §6's wire format.
// Unlike the teacher's HTTP-over-Unix-socket API, every frame here is a
// 4-byte big-endian length prefix followed by a JSON body, one request per
// connection.
package ipc

import (
	"encoding/json"

	"github.com/adasa/adasa/internal/config"
)

// Kind names one of the commands a client may issue.
type Kind string

const (
	KindStart           Kind = "start"
	KindStartFromConfig Kind = "start_from_config"
	KindReloadConfig    Kind = "reload_config"
	KindStop            Kind = "stop"
	KindRestart         Kind = "restart"
	KindDelete          Kind = "delete"
	KindList            Kind = "list"
	KindStatus          Kind = "status"
	KindLogs            Kind = "logs"
	KindDaemonStatus    Kind = "daemon_status"
	KindDaemonShutdown  Kind = "daemon_shutdown"
)

// Request is the single envelope every client frame decodes into; only the
// fields relevant to Kind are populated.
type Request struct {
	Kind Kind `json:"kind"`

	Config *config.ProcessConfig `json:"config,omitempty"`
	Path   string                `json:"path,omitempty"`

	Selector string `json:"selector,omitempty"`
	Force    bool   `json:"force,omitempty"`
	Rolling  bool   `json:"rolling,omitempty"`

	Lines      int  `json:"lines,omitempty"`
	Follow     bool `json:"follow,omitempty"`
	StderrOnly bool `json:"stderr_only,omitempty"`
}

// ErrorPayload is the shape of Reply.Error, matching registry.Error's
// (Kind, Message) pair so clients can branch on error kind.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Reply is the single envelope every daemon frame encodes. Exactly one of
// Payload/Error is populated, keyed by Ok. Payload is kept as a raw JSON
// message rather than interface{} so a client can decode it into the
// concrete type its request Kind implies, instead of a generic map.
type Reply struct {
	Ok      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// okReply marshals payload into a successful Reply.
func okReply(payload interface{}) Reply {
	body, err := json.Marshal(payload)
	if err != nil {
		return Reply{Ok: false, Error: &ErrorPayload{Kind: "internal", Message: err.Error()}}
	}
	return Reply{Ok: true, Payload: body}
}
