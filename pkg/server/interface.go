/*
Package server exposes a suggest.ICompleter over HTTP and over a msgpack IPC
stream on stdin/stdout.

# HTTP

	GET /autocomplete?q=How%20can&n=5

answers with the completions and a trailing newline:

	{"Completions": ["How can I help you today?", "How can I help?"]}

Bad requests get a 400 with {"error": ..., "status": 400}. Limits come from
the [server] config section and can be replaced at runtime with ApplyConfig.

# IPC

Clients write msgpack maps to stdin and read msgpack maps from stdout, one
response per request. Completion requests use this structure:

	{"id": "req_001", "p": "How can", "l": 5}

The server answers with the completions, their count, where they came from
and the time taken in microseconds:

	{"id": "req_001", "s": ["How can I help you today?"], "c": 1, "src": "trie", "t": 145}

Failures use CompletionError:

	{"id": "req_001", "e": "Missing prefix", "c": 400}

Requests with an action field manage the server instead:

	{"id": "stats_001", "action": "stats"}
	{"id": "ping_001", "action": "health"}
*/
package server

// CompletionRequest - minimal completion request
type CompletionRequest struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action,omitempty"` // "", "complete", "stats", "health"
	Prefix string `msgpack:"p"`
	Limit  *int   `msgpack:"l,omitempty"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string   `msgpack:"id"`
	Suggestions []string `msgpack:"s"`
	Count       int      `msgpack:"c"`
	Source      string   `msgpack:"src"`
	TimeTaken   int64    `msgpack:"t"`
}

// StatusResponse answers health and stats actions.
type StatusResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Stats  map[string]int `msgpack:"stats,omitempty"`
}

// CompletionError holds basic error information for completion requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
