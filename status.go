// Copyright 2017, 2022 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kardianos/osext"
	"github.com/tgulacsi/go/version"

	"github.com/tgulacsi/img2pdf/converter"
)

type statInfo struct {
	last               time.Time
	mem                *runtime.MemStats
	startedAt, version string
	mtx                sync.Mutex
}

var (
	stats       = new(statInfo)
	self        = ""
	onceOnStart = new(sync.Once)
)

func onStart() {
	var err error
	if self, err = osext.Executable(); err != nil {
		logger.Error("error getting the path for self", "error", err)
	} else {
		var self2 string
		if self2, err = filepath.Abs(self); err != nil {
			logger.Error("error getting the absolute path", "for", self, "error", err)
		} else {
			self = self2
		}
	}
	stats.startedAt = time.Now().Format(time.RFC3339)
}

// fill fills the stat iff the current one is stale
func (st *statInfo) fill() {
	st.mtx.Lock()
	defer st.mtx.Unlock()

	now := time.Now()
	if st.mem == nil {
		st.mem = new(runtime.MemStats)
		st.version = runtime.Version()
	} else if now.Sub(st.last) <= 5*time.Second {
		return
	}
	st.last = now
	runtime.ReadMemStats(st.mem)
}

func statusPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "", http.StatusNotFound)
		return
	}
	stats.fill()
	stats.mtx.Lock()
	alloc, sys := float64(stats.mem.Alloc)/1024/1024, float64(stats.mem.Sys)/1024/1024
	stats.mtx.Unlock()
	busy := "idle"
	if token, ok := converter.RunLimit.TryAcquire(); !ok {
		busy = "converting"
	} else {
		converter.RunLimit.Release(token)
	}
	cs := converter.GetStats()
	w.Header().Add("Content-Type", "text/html")
	w.WriteHeader(200)
	// nosemgrep: go.lang.security.audit.xss.no-fprintf-to-responsewriter.no-fprintf-to-responsewriter
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
  <head><title>Img2pdf</title></head>
  <body>
    <h1>Img2pdf</h1>
    <p>%s</p>
    <p>%s compiled with Go version %s</p>
    <p>%d started at %s<br/>
    Allocated: %.03fMb (Sys: %.03fMb)</p>
    <p>Engine: %s, %s.</p>
    <p>Runs: %d completed, %d failed; PDFs: %d written, %d failed (%d from cache); %d images.</p>
    <p>POST images (multipart/form-data) to <code>/convert?n=1</code> to get a zip of PDFs.</p>
  </body>
</html>`,
		html.EscapeString(version.Main()),
		html.EscapeString(self), stats.version,
		os.Getpid(), stats.startedAt,
		alloc, sys,
		html.EscapeString(*converter.ConfEngine), busy,
		cs.RunsCompleted, cs.RunsFailed, cs.GroupsOK, cs.GroupsFailed, cs.CacheHits, cs.Images,
	)
}
