package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"tubeflow/internal/apierr"
)

// maxUploadBytes caps multipart request memory and overall upload size.
const maxUploadBytes = 512 << 20

// parseMultipart prepares the request's multipart form with the upload cap.
func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return apierr.Validation("invalid multipart form: %v", err)
	}
	return nil
}

// stageUpload copies the named form file into a temp staging file and
// returns its path with a cleanup func. A missing file is reported when
// required, otherwise an empty path.
func stageUpload(r *http.Request, field string, required bool) (string, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if required {
			return "", nil, apierr.Validation("%s file is required", field)
		}
		return "", func() {}, nil
	}
	defer file.Close()

	path, err := copyToStaging(file, header)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

func copyToStaging(file multipart.File, header *multipart.FileHeader) (string, error) {
	return copyWithLimit(file, header.Filename, maxUploadBytes)
}

func copyWithLimit(file io.Reader, filename string, limit int64) (string, error) {
	ext := filepath.Ext(filename)
	staged, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", apierr.Wrap(apierr.KindInternal, err, "create staging file")
	}
	path := staged.Name()
	// Read one byte past the cap so an oversized file is rejected rather
	// than silently truncated.
	written, err := io.Copy(staged, io.LimitReader(file, limit+1))
	if err != nil {
		staged.Close()
		_ = os.Remove(path)
		return "", apierr.Wrap(apierr.KindInternal, err, "stage upload")
	}
	if written > limit {
		staged.Close()
		_ = os.Remove(path)
		return "", apierr.Validation("%s exceeds the %d byte upload limit", filename, limit)
	}
	if err := staged.Close(); err != nil {
		_ = os.Remove(path)
		return "", apierr.Wrap(apierr.KindInternal, err, "close staging file")
	}
	return path, nil
}
