// Copyright 2023 The Img2pdf Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package converter

import (
	"context"
	"crypto/rand"
	"log/slog"

	"github.com/oklog/ulid/v2"
)

type ctxRunID struct{}

// SetRunID stores the run id in the context, generating one if empty.
// An already set id is kept.
func SetRunID(ctx context.Context, runID string) context.Context {
	if v, ok := ctx.Value(ctxRunID{}).(string); ok && v != "" {
		return ctx
	}
	if runID == "" {
		runID = NewULID().String()
	}
	return context.WithValue(ctx, ctxRunID{}, runID)
}

// GetRunID returns the run id of the context, or a new one.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRunID{}).(string); ok && v != "" {
		return v
	}
	return NewULID().String()
}

// RunLogger returns the package logger annotated with the run id of the context.
func RunLogger(ctx context.Context) *slog.Logger {
	return getLogger().With("run", GetRunID(ctx))
}

func NewULID() ulid.ULID {
	return ulid.MustNew(ulid.Now(), rand.Reader)
}
