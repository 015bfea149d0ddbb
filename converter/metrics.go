// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import "github.com/VictoriaMetrics/metrics"

var (
	mRunsCompleted = metrics.NewCounter(`img2pdf_runs_total{result="completed"}`)
	mRunsFailed    = metrics.NewCounter(`img2pdf_runs_total{result="failed"}`)
	mGroupsOK      = metrics.NewCounter(`img2pdf_groups_total{result="ok"}`)
	mGroupsFailed  = metrics.NewCounter(`img2pdf_groups_total{result="failed"}`)
	mCacheHits     = metrics.NewCounter(`img2pdf_cache_hits_total`)
	mImages        = metrics.NewCounter(`img2pdf_images_total`)
	mEncodeDur     = metrics.NewHistogram(`img2pdf_encode_duration_seconds`)
)

// Stats is a snapshot of the conversion counters since the start of the process.
type Stats struct {
	RunsCompleted, RunsFailed uint64
	GroupsOK, GroupsFailed    uint64
	CacheHits, Images         uint64
}

// GetStats returns the current counters.
func GetStats() Stats {
	return Stats{
		RunsCompleted: mRunsCompleted.Get(), RunsFailed: mRunsFailed.Get(),
		GroupsOK: mGroupsOK.Get(), GroupsFailed: mGroupsFailed.Get(),
		CacheHits: mCacheHits.Get(), Images: mImages.Get(),
	}
}
