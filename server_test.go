// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type part struct {
	Name    string
	Content []byte
}

func postImages(t *testing.T, srv *httptest.Server, query string, parts ...part) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreateFormFile("file", p.Name)
		require.NoError(t, err)
		_, err = w.Write(p.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	resp, err := srv.Client().Post(srv.URL+"/convert?"+query, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestServeConvert(t *testing.T) {
	srv := httptest.NewServer(newMux(false))
	defer srv.Close()

	img := pngBytes(t, 10, 20)
	resp, b := postImages(t, srv, "n=1&engine=direct",
		part{"b.png", img}, part{`C:\Users\x\a.png`, img})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	require.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	files := zipContents(t, b)
	require.Equal(t, []string{"ZZZ-messages.txt", "a.pdf", "b.pdf"}, keys(files))
	require.True(t, bytes.HasPrefix(files["a.pdf"], []byte("%PDF-")))
	msgs := string(files["ZZZ-messages.txt"])
	require.Contains(t, msgs, "found 2 valid image files\n[ 50%]\nwritten: b.pdf\n[100%]\nwritten: a.pdf\n")
	require.True(t, strings.HasSuffix(msgs, "conversion complete\n"), msgs)

	resp, b = postImages(t, srv, "n=5", part{"a.png", img}, part{"b.png", img}, part{"c.txt", []byte("x")})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	require.Equal(t, []string{"ZZZ-messages.txt", "merged_images.pdf"}, keys(zipContents(t, b)))
}

func TestServeConvertErrors(t *testing.T) {
	srv := httptest.NewServer(newMux(false))
	defer srv.Close()
	img := pngBytes(t, 4, 4)

	for _, q := range []string{"n=0", "n=51", "n=x", "engine=nope"} {
		resp, b := postImages(t, srv, q, part{"a.png", img})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s: %s", q, b)
	}

	resp, b := postImages(t, srv, "n=1", part{"a.txt", []byte("text")})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(b))
	require.Contains(t, string(b), "no valid image files found")

	resp, b = postImages(t, srv, "n=2",
		part{"a.png", img}, part{"b.jpg", []byte("this is definitely not a JPEG")})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(b))
	require.Contains(t, string(b), "merged_images.pdf")

	resp, err := srv.Client().Get(srv.URL + "/convert")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServeStatus(t *testing.T) {
	srv := httptest.NewServer(newMux(false))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(b), "<h1>Img2pdf</h1>")
	require.Contains(t, string(b), "idle")
	require.Contains(t, string(b), "<p>Runs: ")

	resp, err = srv.Client().Get(srv.URL + "/nothing")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(b), "img2pdf_runs_total")
}

func TestBaseName(t *testing.T) {
	for in, want := range map[string]string{
		"":                "",
		"a.png":           "a.png",
		"dir/b.jpg":       "b.jpg",
		`C:\tmp\c.gif`:    "c.gif",
		"../../etc/d.bmp": "d.bmp",
	} {
		if got := baseName(in); got != want {
			t.Errorf("%q: got %q, wanted %q", in, got, want)
		}
	}
}

func TestHTTPServerHandler(t *testing.T) {
	srv := httptest.NewServer(newHTTPServer("", false).Handler)
	defer srv.Close()

	resp, b := postImages(t, srv, "n=1&engine=direct", part{"a.png", pngBytes(t, 6, 6)})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	require.Equal(t, []string{"ZZZ-messages.txt", "a.pdf"}, keys(zipContents(t, b)))

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
