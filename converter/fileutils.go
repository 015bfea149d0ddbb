// Copyright 2013 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/KarpelesLab/reflink"
	"github.com/google/renameio/v2"
	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

func isDir(fn string) bool {
	fi, err := os.Stat(fn)
	return err == nil && fi.IsDir()
}

// copy file, atomically replacing the destination
func copyFile(from, to string) error {
	if from == to {
		return nil
	}
	tmp := filepath.Join(filepath.Dir(to), "."+filepath.Base(to)+".reflink")
	if err := reflink.Auto(from, tmp); err == nil {
		if err = os.Rename(tmp, to); err == nil {
			return nil
		}
	}
	_ = os.Remove(tmp)

	ifh, err := os.Open(from)
	if err != nil {
		return errors.Wrapf(err, "copy cannot open %s for reading", from)
	}
	defer func() { _ = ifh.Close() }()
	ofh, err := renameio.NewPendingFile(to, renameio.WithPermissions(0644))
	if err != nil {
		return errors.Wrapf(err, "copy cannot open %s for writing", to)
	}
	defer func() { _ = ofh.Cleanup() }()
	if _, err = io.Copy(ofh, ifh); err != nil {
		return errors.Wrapf(err, "error copying from %s to %s", from, to)
	}
	return ofh.CloseAtomicallyReplace()
}

// ListImages returns the supported images directly in dir (not recursing), sorted by name.
func ListImages(dir string) ([]string, error) {
	dis, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	images := make([]string, 0, len(dis))
	for _, di := range dis {
		if di.IsDir() || !IsImage(di.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, di.Name()))
	}
	sort.Strings(images)
	return images, nil
}

// ExpandPaths replaces directories with the images in them, keeping the order.
// Anything else is kept as is: the planner drops non-images,
// and the worker skips unreadable images.
func ExpandPaths(paths []string) ([]string, error) {
	res := make([]string, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			getLogger().Debug("expand", "path", p, "error", err)
			res = append(res, p)
			continue
		}
		if !fi.IsDir() {
			res = append(res, p)
			continue
		}
		images, err := ListImages(p)
		if err != nil {
			return res, errors.Wrapf(err, "list %s", p)
		}
		getLogger().Debug("expand", "dir", p, "images", len(images))
		res = append(res, images...)
	}
	return res, nil
}

// ZipFiles writes the files into a zip archive in the given order, named as their base name.
func ZipFiles(ctx context.Context, dest io.Writer, filenames ...string) error {
	files := make([]archives.FileInfo, 0, len(filenames))
	for _, fn := range filenames {
		fis, err := archives.FilesFromDisk(ctx, nil, map[string]string{fn: filepath.Base(fn)})
		if err != nil {
			return errors.Wrapf(err, "collect %s", fn)
		}
		files = append(files, fis...)
	}
	return errors.Wrap(archives.Zip{}.Archive(ctx, dest, files), "zip")
}
