// Copyright 2017 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/UNO-SOFT/otel"
	"github.com/VictoriaMetrics/metrics"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/tgulacsi/img2pdf/converter"
)

// newHTTPServer returns a new, stoppable HTTP server
func newHTTPServer(address string, saveReq bool) *http.Server {
	onceOnStart.Do(onStart)

	return &http.Server{
		Addr:         address,
		ReadTimeout:  300 * time.Second,
		WriteTimeout: 1800 * time.Second,
		Handler:      otel.HTTPMiddleware(otel.GlobalTracer("img2pdf"), newMux(saveReq)),
	}
}

func newMux(saveReq bool) *http.ServeMux {
	befores := append(make([]kithttp.RequestFunc, 0, len(defaultBeforeFuncs)+1), defaultBeforeFuncs...)
	if saveReq {
		befores = append(befores, dumpRequest)
	}

	var mux http.ServeMux
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) { metrics.WritePrometheus(w, true) })

	H := func(path string, handleFunc http.HandlerFunc) {
		mName := fmt.Sprintf("request_duration_seconds{method=%%q,handler=%q}", strings.Replace(path[1:], "/", "_", -1))
		mPost := metrics.GetOrCreateHistogram(fmt.Sprintf(mName, "POST"))
		mux.HandleFunc(
			path,
			func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					w.Header().Set("Allow", http.MethodPost)
					http.Error(w, "only POST is allowed", http.StatusMethodNotAllowed)
					return
				}
				start := time.Now()
				handleFunc.ServeHTTP(w, r)
				mPost.UpdateDuration(start)
			},
		)
	}
	H("/convert", newConvertServer(befores...).ServeHTTP)
	mux.Handle("/", http.HandlerFunc(statusPage))
	return &mux
}

type ctxKey string

const (
	ctxKeyCancel = ctxKey("cancel")
	ctxKeyLogger = ctxKey("logger")
)

var defaultBeforeFuncs = []kithttp.RequestFunc{
	prepareContext,
}

func prepareContext(ctx context.Context, r *http.Request) context.Context {
	ctx, cancel := context.WithTimeout(ctx, *converter.ConfRequestTimeout)
	ctx = context.WithValue(ctx, ctxKeyCancel, cancel)
	ctx = converter.SetRunID(ctx, "")
	lgr := getLogger(ctx).With(
		"reqid", converter.GetRunID(ctx),
		"path", r.URL.Path,
		"method", r.Method,
	)
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		lgr = lgr.With("ip", host)
	}
	ctx = context.WithValue(ctx, ctxKeyLogger, lgr)
	lgr.Info("ACCEPT", "uri", r.RequestURI, "remote", r.RemoteAddr)
	return ctx
}

func cancelContext(ctx context.Context, code int, r *http.Request) {
	if cancel, ok := ctx.Value(ctxKeyCancel).(context.CancelFunc); ok {
		cancel()
	}
}

var reqSeq atomic.Uint64

func dumpRequest(ctx context.Context, req *http.Request) context.Context {
	if req == nil {
		return ctx
	}
	prefix := filepath.Join(converter.Workdir, time.Now().Format("20060102_150405")+"-")
	logger := getLogger(ctx).With("fn", "dumpRequest")
	b, err := httputil.DumpRequest(req, true)
	if err != nil {
		logger.Error("dumping request", "error", err)
	}
	fn := fmt.Sprintf("%s%06d.dmp", prefix, reqSeq.Add(1))
	if err = os.WriteFile(fn, b, 0660); err != nil {
		logger.Error("writing", "dumpfile", fn, "error", err)
	} else {
		logger.Info("Request has been dumped into " + fn)
	}
	return ctx
}

func baseName(fileName string) string {
	if fileName == "" {
		return ""
	}
	i := strings.LastIndexAny(fileName, "/\\")
	if i >= 0 {
		fileName = fileName[i+1:]
	}
	return fileName
}

func getLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logger
	}
	if lgr, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return lgr
	}
	return logger
}
