// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyInput is returned when no supported image remains after filtering.
	ErrEmptyInput = errors.New("no valid image files found")
	// ErrBadGroupSize is returned for a group size below 1.
	ErrBadGroupSize = errors.New("group size must be at least 1")
)

// supported image extensions (lowercase, with leading dot)
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
}

// IsImage reports whether the file name has a supported image extension.
// Dot files (".png") have no extension, only a name.
func IsImage(fn string) bool {
	base := filepath.Base(fn)
	ext := filepath.Ext(base)
	return len(ext) < len(base) && imageExtensions[strings.ToLower(ext)]
}

// FilterImages returns the paths with supported image extensions, in order.
func FilterImages(paths []string) []string {
	images := make([]string, 0, len(paths))
	for _, p := range paths {
		if IsImage(p) {
			images = append(images, p)
		}
	}
	return images
}

// Plan is the ordered list of groups to be converted, one PDF per group.
type Plan struct {
	Groups    [][]string
	GroupSize int
}

// NewPlan filters the paths and partitions the images into groups of groupSize.
func NewPlan(paths []string, groupSize int) (Plan, error) {
	if groupSize < 1 {
		return Plan{}, ErrBadGroupSize
	}
	images := FilterImages(paths)
	if len(images) == 0 {
		return Plan{}, ErrEmptyInput
	}
	plan := Plan{
		GroupSize: groupSize,
		Groups:    make([][]string, 0, (len(images)+groupSize-1)/groupSize),
	}
	for len(images) > 0 {
		n := min(groupSize, len(images))
		plan.Groups = append(plan.Groups, images[:n:n])
		images = images[n:]
	}
	return plan, nil
}

// Len returns the number of groups.
func (p Plan) Len() int { return len(p.Groups) }

// Images returns the number of images in the plan.
func (p Plan) Images() int {
	var n int
	for _, g := range p.Groups {
		n += len(g)
	}
	return n
}

// IsSingleMerge reports whether all images go into one merged PDF.
//
// A failure of the single merge fails the whole run.
func (p Plan) IsSingleMerge() bool {
	return p.GroupSize > 1 && len(p.Groups) == 1
}

// OutputName returns the PDF file name for the i-th (0-based) group.
func (p Plan) OutputName(i int) string {
	if p.GroupSize == 1 {
		fn := filepath.Base(p.Groups[i][0])
		return norm.NFC.String(strings.TrimSuffix(fn, filepath.Ext(fn))) + ".pdf"
	}
	if len(p.Groups) == 1 {
		return "merged_images.pdf"
	}
	return "images_group_" + strconv.Itoa(i+1) + ".pdf"
}
