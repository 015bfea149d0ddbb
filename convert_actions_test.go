// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"

	"github.com/tgulacsi/img2pdf/converter"
)

func TestConvertImages(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	writePNG(t, inDir, "b.png")
	writePNG(t, inDir, "a.png")
	writePNG(t, inDir, "c.png")
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("x"), 0644))
	zipfn := filepath.Join(t.TempDir(), "out.zip")

	var out, errOut bytes.Buffer
	err := convertImages(context.Background(), &out, &errOut,
		convertFlags{outDir: outDir, engine: converter.EngineDirect, groupSize: 2, zipOut: zipfn},
		[]string{inDir})
	require.NoError(t, err, errOut.String())

	want := strings.Join([]string{
		"conversion complete (2 written, 0 failed)",
		filepath.Join(outDir, "images_group_1.pdf"),
		filepath.Join(outDir, "images_group_2.pdf"),
		"",
	}, "\n")
	if d := diff.Diff(want, out.String()); d != "" {
		t.Error(d)
	}
	want = strings.Join([]string{
		"starting conversion",
		"found 3 valid image files",
		"[ 50%]", "written: images_group_1.pdf",
		"[100%]", "written: images_group_2.pdf",
		"",
	}, "\n")
	if d := diff.Diff(want, errOut.String()); d != "" {
		t.Error(d)
	}

	b, err := os.ReadFile(zipfn)
	require.NoError(t, err)
	files := zipContents(t, b)
	require.Equal(t, []string{"images_group_1.pdf", "images_group_2.pdf"}, keys(files))
	require.True(t, bytes.HasPrefix(files["images_group_1.pdf"], []byte("%PDF-")))
}

func TestConvertImagesZipStdout(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	writePNG(t, inDir, "x.png")
	var out, errOut bytes.Buffer
	err := convertImages(context.Background(), &out, &errOut,
		convertFlags{outDir: outDir, engine: converter.EngineDirect, groupSize: 1, zipOut: "-"},
		[]string{filepath.Join(inDir, "x.png")})
	require.NoError(t, err)
	require.Equal(t, []string{"x.pdf"}, keys(zipContents(t, out.Bytes())))
	require.Contains(t, errOut.String(), "conversion complete (1 written, 0 failed)")
}

func TestConvertImagesMissingPaths(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	a := writePNG(t, inDir, "a.png")
	gone := filepath.Join(inDir, "gone.jpg")
	var out, errOut bytes.Buffer
	err := convertImages(context.Background(), &out, &errOut,
		convertFlags{outDir: outDir, engine: converter.EngineDirect, groupSize: 1},
		[]string{a, gone, filepath.Join(inDir, "notes.txt")})
	require.NoError(t, err, errOut.String())
	require.Equal(t,
		"conversion complete (1 written, 1 failed)\n"+filepath.Join(outDir, "a.pdf")+"\n",
		out.String())
	require.Contains(t, errOut.String(), "found 2 valid image files\n[ 50%]\nwritten: a.pdf\n")
	require.Contains(t, errOut.String(), "conversion failed "+gone+": ")
	require.FileExists(t, filepath.Join(outDir, "a.pdf"))
	require.NoFileExists(t, filepath.Join(outDir, "gone.pdf"))
}

func TestConvertImagesErrors(t *testing.T) {
	inDir := t.TempDir()
	fn := writePNG(t, inDir, "a.png")
	var out, errOut bytes.Buffer
	ctx := context.Background()

	require.Error(t, convertImages(ctx, &out, &errOut, convertFlags{groupSize: 1}, nil))
	require.ErrorContains(t,
		convertImages(ctx, &out, &errOut, convertFlags{groupSize: converter.MaxGroupSize + 1}, []string{fn}),
		"between 1 and")
	require.ErrorContains(t,
		convertImages(ctx, &out, &errOut, convertFlags{groupSize: 1, outDir: inDir, engine: "nope"}, []string{fn}),
		"unknown engine")

	out.Reset()
	err := convertImages(ctx, &out, &errOut,
		convertFlags{groupSize: 1, outDir: filepath.Join(inDir, "missing"), engine: converter.EngineDirect},
		[]string{fn})
	require.ErrorIs(t, err, converter.ErrOutputDirMissing)
	require.True(t, strings.HasPrefix(out.String(), "FAILED: "), out.String())

	txt := filepath.Join(inDir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))
	err = convertImages(ctx, &out, &errOut, convertFlags{groupSize: 1, outDir: inDir}, []string{txt})
	require.ErrorIs(t, err, converter.ErrEmptyInput)
}

func TestRenderEvents(t *testing.T) {
	events := make(chan converter.Event, 4)
	events <- converter.Message{Text: "starting conversion"}
	events <- converter.Progress{Percent: 5}
	events <- converter.Progress{Percent: 100}
	events <- converter.Message{Text: "written: a.pdf"}
	close(events)
	var buf bytes.Buffer
	require.NoError(t, renderEvents(&buf, events))
	require.Equal(t, "starting conversion\n[  5%]\n[100%]\nwritten: a.pdf\n", buf.String())
}
