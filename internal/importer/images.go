package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
)

var (
	remoteURLRe   = regexp.MustCompile(`(?i)^https?://`)
	unsafeSlugRe  = regexp.MustCompile(`[^a-zA-Z0-9-_]`)
	defaultImgExt = ".jpg"
)

// isRemoteURL reports whether an image reference is an absolute http(s) URL
// that should be passed through without uploading.
func isRemoteURL(ref string) bool {
	return remoteURLRe.MatchString(ref)
}

// sanitizeSlug makes a slug safe for use as an object-store path segment.
func sanitizeSlug(slug string) string {
	return unsafeSlugRe.ReplaceAllString(slug, "-")
}

// imagePath is the deterministic object path for one image reference:
// {sanitized-slug}/img{N}.{ext}. Re-importing overwrites the same path.
func imagePath(slug, ref string, index int) string {
	ext := strings.ToLower(path.Ext(ref))
	if ext == "" {
		ext = defaultImgExt
	}
	return fmt.Sprintf("%s/img%d%s", sanitizeSlug(slug), index+1, ext)
}

// imageContentType derives the upload content type from the reference's
// extension, defaulting to image/jpeg.
func imageContentType(ref string) string {
	ext := strings.ToLower(path.Ext(ref))
	if ext == "" {
		ext = defaultImgExt
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}

// materializeImages turns a manifest's image references into public URLs,
// preserving order. Remote URLs pass through verbatim; local references are
// extracted from the archive and uploaded. Any single failure fails the
// whole product.
func (imp *Importer) materializeImages(ctx context.Context, zr *zip.Reader, dir string, rec *ManifestRecord) ([]string, error) {
	urls := make([]string, 0, len(rec.Images))

	for i, ref := range rec.Images {
		if ref == "" {
			continue
		}

		if isRemoteURL(ref) {
			urls = append(urls, ref)
			continue
		}

		entry := findImageEntry(zr, dir, ref)
		if entry == nil {
			return nil, &ProductError{
				Code:    CodeImageEntryNotFound,
				Slug:    rec.Slug,
				Message: fmt.Sprintf("image file not found in ZIP: %s for product %s", ref, rec.Slug),
			}
		}

		data, err := readEntry(entry)
		if err != nil {
			return nil, &ProductError{
				Code:    CodeImageReadFailed,
				Slug:    rec.Slug,
				Message: fmt.Sprintf("failed to read image file: %s for product %s", ref, rec.Slug),
			}
		}

		objectPath := imagePath(rec.Slug, ref, i)

		uploadCtx, cancel := context.WithTimeout(ctx, imp.opTimeout)
		err = imp.objects.Upload(uploadCtx, objectPath, data, imageContentType(ref))
		cancel()
		if err != nil {
			return nil, &ProductError{
				Code:    CodeImageUploadFailed,
				Slug:    rec.Slug,
				Message: fmt.Sprintf("failed to upload image %s: %v", ref, err),
			}
		}

		url, err := imp.objects.PublicURL(objectPath)
		if err != nil {
			return nil, &ProductError{
				Code:    CodePublicUrlUnavailable,
				Slug:    rec.Slug,
				Message: fmt.Sprintf("unable to retrieve public URL for %s: %v", objectPath, err),
			}
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return nil, &ProductError{
			Code:    CodeNoImagesProcessed,
			Slug:    rec.Slug,
			Message: fmt.Sprintf("no images were successfully processed for product %s", rec.Slug),
		}
	}

	return urls, nil
}

// findImageEntry locates an image reference within the product directory.
// An exact {dir}/{ref} match wins; a reference that already carries the
// directory prefix matches as-is; a suffix match on "/"+ref tolerates
// nested subfolders. The prefix guard keeps all matches inside dir.
func findImageEntry(zr *zip.Reader, dir, ref string) *zip.File {
	cleanRef := normalizePath(ref)
	exact := cleanRef
	if dir != "" {
		exact = dir + "/" + cleanRef
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entryPath := normalizePath(f.Name)
		if dir != "" && !strings.HasPrefix(entryPath, dir+"/") {
			continue
		}
		if entryPath == exact || entryPath == cleanRef || strings.HasSuffix(entryPath, "/"+cleanRef) {
			return f
		}
	}
	return nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
