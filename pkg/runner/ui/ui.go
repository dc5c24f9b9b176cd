package ui

import (
	"context"
	"errors"
	"log/slog"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/images"
	"tableflip.dev/pinmap/pkg/repository"
	"tableflip.dev/pinmap/pkg/store"
	"tableflip.dev/pinmap/pkg/tui/app"
)

// UI launches the full-screen map interface.
type UI struct {
	Store    store.Store
	Identity auth.Identity
	Logger   *slog.Logger
}

func (u *UI) Do(ctx context.Context) error {
	if u.Store == nil {
		return errors.New("can not open ui, no store")
	}
	if u.Identity == nil {
		return errors.New("can not open ui, no identity provider")
	}
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}

	uploader, err := images.NewClient(images.ConfigFromEnv(), images.WithLogger(logger))
	if err != nil {
		return err
	}
	previewer, err := images.NewTempPreviewer()
	if err != nil {
		return err
	}
	defer func() { _ = previewer.Close() }()

	repo := repository.New(u.Store, repository.WithLogger(logger))
	defer repo.Unsubscribe()

	return app.Run(app.Deps{
		Repository: repo,
		Identity:   u.Identity,
		Uploader:   uploader,
		Previewer:  previewer,
		Logger:     logger,
	})
}
