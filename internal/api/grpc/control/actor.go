package control

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the caller identity.
const (
	hostnameKey = "x-actor-hostname"
	usernameKey = "x-actor-username"
)

// Actor identifies who issued a control call.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as user@host.
func (a Actor) String() string {
	if a.Hostname == "" && a.Username == "" {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}

// WithActor attaches actor to outgoing call metadata.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx, hostnameKey, actor.Hostname, usernameKey, actor.Username)
}

// ActorFromContext reads the caller identity from incoming metadata.
func ActorFromContext(ctx context.Context) Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Actor{}
	}

	return Actor{
		Hostname: first(md.Get(hostnameKey)),
		Username: first(md.Get(usernameKey)),
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
