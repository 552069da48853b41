// watch.go: Polling reload of a bound configuration file
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package tessera

import (
	"context"
	"os"
	"time"

	"github.com/agilira/go-errors"
)

// DefaultPollInterval is used by Watch when no interval is given.
const DefaultPollInterval = time.Second

type fileStat struct {
	modTime time.Time
	size    int64
	exists  bool
}

func (r *RootNode) stat(path string) (fileStat, error) {
	info, err := r.config.Fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileStat{}, nil
		}
		return fileStat{}, err
	}
	return fileStat{modTime: info.ModTime(), size: info.Size(), exists: true}, nil
}

// Watch polls the bound file and calls Reload whenever its modification
// time or size changes. onChange, when set, receives the outcome of every
// reload, and OutcomeMissing when the file disappears. Watch blocks until
// ctx is done and returns nil then.
func (r *RootNode) Watch(ctx context.Context, interval time.Duration, onChange func(Outcome)) error {
	path := r.File()
	if path == "" {
		return errors.New(ErrCodeNoFile, "cannot watch an unbound configuration")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}

	last, err := r.stat(path)
	if err != nil {
		r.config.ErrorHandler(errors.Wrap(err, ErrCodeFileNotFound, "failed to stat file").
			WithContext("path", path), path)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, err := r.stat(path)
		if err != nil {
			r.config.ErrorHandler(errors.Wrap(err, ErrCodeFileNotFound, "failed to stat file").
				WithContext("path", path), path)
			continue
		}

		switch {
		case !current.exists && last.exists:
			if onChange != nil {
				onChange(OutcomeMissing)
			}
		case current.exists && (!last.exists || !current.modTime.Equal(last.modTime) || current.size != last.size):
			outcome, _ := r.Reload(ctx)
			if onChange != nil {
				onChange(outcome)
			}
		}
		last = current
	}
}
