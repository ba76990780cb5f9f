package starboard

import "context"

// Poster creates starboard content in the output channel. Delivery failures
// should wrap ErrTransient.
type Poster interface {
	PostContent(ctx context.Context, content Content) (ContentRef, error)
}

// Refresher is implemented by posters able to update an existing mirror, for
// example to show a new count.
type Refresher interface {
	RefreshContent(ctx context.Context, ref ContentRef, content Content) error
}

// Retractor is implemented by posters able to remove content they posted.
type Retractor interface {
	RetractContent(ctx context.Context, ref ContentRef) error
}
