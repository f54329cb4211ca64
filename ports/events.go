package ports

import "context"

// EventPublisher notifies other components about session lifecycle changes
type EventPublisher interface {
	PublishLogin(ctx context.Context, address string) error
	PublishLogout(ctx context.Context, address string) error
}
