// Copyright 2017, 2022 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/tgulacsi/img2pdf/converter"
)

func newConvertServer(befores ...kithttp.RequestFunc) *kithttp.Server {
	return kithttp.NewServer(
		convertEP,
		convertDecode,
		convertEncode,
		kithttp.ServerBefore(befores...),
		kithttp.ServerAfter(kithttp.SetContentType("application/zip")),
		kithttp.ServerFinalizer(cancelContext),
	)
}

type convertRequest struct {
	Engine    string
	Dir       string
	Images    []string
	GroupSize int
}

type convertResponse struct {
	Dir      string
	Outputs  []string
	Messages []byte
}

type statusError struct {
	error
	code int
}

func (se statusError) StatusCode() int { return se.code }
func (se statusError) Unwrap() error   { return se.error }

func badRequest(err error) error { return statusError{error: err, code: http.StatusBadRequest} }

func convertDecode(ctx context.Context, r *http.Request) (req interface{}, err error) {
	logger := getLogger(ctx).With(slog.String("fn", "convertDecode"))
	cr := convertRequest{GroupSize: *converter.ConfGroupSize, Engine: *converter.ConfEngine}
	q := r.URL.Query()
	if s := q.Get("n"); s != "" {
		if cr.GroupSize, err = strconv.Atoi(s); err != nil {
			return nil, badRequest(fmt.Errorf("n=%q: %w", s, err))
		}
	}
	if cr.GroupSize < 1 || cr.GroupSize > converter.MaxGroupSize {
		return nil, badRequest(fmt.Errorf("n must be between 1 and %d", converter.MaxGroupSize))
	}
	if s := q.Get("engine"); s != "" {
		cr.Engine = s
	}
	if _, err = converter.GetEncoder(cr.Engine); err != nil {
		return nil, badRequest(err)
	}

	if cr.Dir, err = os.MkdirTemp(converter.Workdir, "img2pdf-"+converter.GetRunID(ctx)+"-"); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && !converter.LeaveTempFiles {
			_ = os.RemoveAll(cr.Dir)
		}
	}()
	if cr.Images, err = getRequestFiles(r, filepath.Join(cr.Dir, "in")); err != nil {
		logger.Error("getRequestFiles", "error", err)
		return nil, badRequest(err)
	}
	logger.Info("decoded", "images", len(cr.Images), "n", cr.GroupSize, "engine", cr.Engine)
	return cr, nil
}

func convertEP(ctx context.Context, request interface{}) (response interface{}, err error) {
	req, ok := request.(convertRequest)
	if !ok {
		return nil, fmt.Errorf("awaited convertRequest, got %T", request)
	}
	defer func() {
		if err != nil && !converter.LeaveTempFiles {
			_ = os.RemoveAll(req.Dir)
		}
	}()
	logger := getLogger(ctx).With("fn", "convertEP")

	outDir := filepath.Join(req.Dir, "out")
	if err = os.MkdirAll(outDir, 0750); err != nil {
		return nil, err
	}
	var cache = converter.Cache
	if !*converter.ConfUseCache {
		cache = nil
	}
	w, err := converter.NewWorker(req.Engine, cache)
	if err != nil {
		return nil, badRequest(err)
	}

	token, err := converter.RunLimit.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer converter.RunLimit.Release(token)

	run, err := w.Start(ctx, converter.Job{Images: req.Images, OutputDir: outDir, GroupSize: req.GroupSize})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	_ = renderEvents(&buf, run.Events())
	res := run.Wait()
	logger.Info("converted", "run", run.ID, "ok", res.OK, "outputs", len(res.Outputs), "failed", len(res.Errors))
	if !res.OK {
		code := http.StatusUnprocessableEntity
		if errors.Is(res.Err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		return nil, statusError{error: res.Err, code: code}
	}
	fmt.Fprintln(&buf, res.Message)
	return convertResponse{Dir: req.Dir, Outputs: res.Outputs, Messages: buf.Bytes()}, nil
}

func convertEncode(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	resp, ok := response.(convertResponse)
	if !ok {
		return fmt.Errorf("awaited convertResponse, got %T", response)
	}
	if !converter.LeaveTempFiles {
		defer func() { _ = os.RemoveAll(resp.Dir) }()
	}
	logger := getLogger(ctx).With("fn", "convertEncode")
	msgFn := filepath.Join(resp.Dir, converter.MessagesFn)
	if err := os.WriteFile(msgFn, resp.Messages, 0640); err != nil {
		return err
	}
	err := converter.ZipFiles(ctx, w, append(resp.Outputs, msgFn)...)
	logger.Info("written", "files", len(resp.Outputs)+1, "error", err)
	return err
}

// getRequestFiles saves the files of the multipart request into destDir, keeping their order and base names.
func getRequestFiles(r *http.Request, destDir string) ([]string, error) {
	if r.Body != nil {
		defer func() { _ = r.Body.Close() }()
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("cannot parse request as multipart-form: %w", err)
	}
	var filenames []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return filenames, err
		}
		name := baseName(part.FileName())
		if name == "" || name == "." || name == ".." {
			_ = part.Close()
			continue
		}
		dir := filepath.Join(destDir, fmt.Sprintf("%03d", len(filenames)))
		if err = os.MkdirAll(dir, 0750); err != nil {
			_ = part.Close()
			return filenames, err
		}
		fn := filepath.Join(dir, name)
		if err = readerToFile(fn, part); err != nil {
			_ = part.Close()
			return filenames, fmt.Errorf("error saving %q: %w", name, err)
		}
		_ = part.Close()
		filenames = append(filenames, fn)
	}
	if len(filenames) == 0 {
		return nil, errors.New("no files?")
	}
	return filenames, nil
}

// readerToFile copies the reader to the file
func readerToFile(fn string, r io.Reader) error {
	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	if _, err = io.Copy(fh, r); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
