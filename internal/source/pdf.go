package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPDFFrames extracts the embedded images of a PDF and returns them as
// frames ordered by page, then by image index.
func extractPDFFrames(filename, pageRange string) ([]scanner.Frame, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "barscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	for _, p := range pageNumbers {
		pageStrings = append(pageStrings, strconv.Itoa(p))
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	return collectPDFFrames(filename, tempDir)
}

type pageImage struct {
	page, index int
	path        string
}

// collectPDFFrames loads images written by pdfcpu. Files that do not follow
// the page_<n>_image_<i>.<ext> naming or fail to decode are skipped.
func collectPDFFrames(pdfPath, dir string) ([]scanner.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var found []pageImage
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, index, err := parseExtractedName(e.Name())
		if err != nil {
			continue
		}
		found = append(found, pageImage{page: page, index: index, path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].page != found[j].page {
			return found[i].page < found[j].page
		}
		return found[i].index < found[j].index
	})

	frames := make([]scanner.Frame, 0, len(found))
	for _, f := range found {
		img, err := imaging.Open(f.path)
		if err != nil {
			continue
		}
		frames = append(frames, scanner.Frame{
			Image:  img,
			Source: fmt.Sprintf("%s#page=%d", pdfPath, f.page),
		})
	}
	return frames, nil
}

// parseExtractedName reads page and image index from a pdfcpu output name.
// Names may carry a prefix before "page_"; a missing image index counts as 0.
func parseExtractedName(name string) (page, index int, err error) {
	i := strings.Index(name, "page_")
	if i < 0 {
		return 0, 0, errors.New("not a page file")
	}
	stem := strings.TrimSuffix(name[i:], filepath.Ext(name))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return 0, 0, errors.New("invalid filename format")
	}
	page, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errors.New("invalid page number")
	}
	if len(parts) >= 4 && parts[2] == "image" {
		index, _ = strconv.Atoi(parts[3])
	}
	return page, index, nil
}

// ValidatePageRange reports whether pageRange is a valid page selection.
func ValidatePageRange(pageRange string) error {
	_, err := parsePageRange(pageRange)
	return err
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
// Empty means all pages.
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if start, end, ok := strings.Cut(part, "-"); ok {
		first, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil || first < 1 {
			return nil, fmt.Errorf("invalid start page: %s", start)
		}
		last, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil || last < 1 {
			return nil, fmt.Errorf("invalid end page: %s", end)
		}
		if first > last {
			return nil, fmt.Errorf("start page %d greater than end page %d", first, last)
		}
		out := make([]int, 0, last-first+1)
		for p := first; p <= last; p++ {
			out = append(out, p)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
