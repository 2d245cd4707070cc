package poster

import (
	"context"

	"photopost/pkg/history"
	"photopost/pkg/imaging"
	"photopost/pkg/ledger"
	"photopost/pkg/telegram"
)

// Transport delivers a photo to the channel
type Transport interface {
	SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error)
}

// Ledger tracks how often each photo was posted
type Ledger interface {
	Load() ledger.Counts
	MarkPosted(id string) error
}

// Resizer returns the file to send for a photo, downscaled when needed
type Resizer interface {
	Prepare(path string) (imaging.Result, error)
}

// Workspace removes resized temporaries
type Workspace interface {
	Remove(path string) error
}

// Archive moves posted photos aside and brings them back for a new rotation
type Archive interface {
	Move(path string) (string, error)
	RestoreAll() (int, error)
}

// Journal records successful posts
type Journal interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}
