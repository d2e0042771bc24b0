// Package fetchr exposes the client builder.
package fetchr

import (
	"github.com/glasswing-io/fetchr/client"
)

// NewClient instantiates a new *client.Client with the provided
// options. If not specified, the default http.Client and transport
// are used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
