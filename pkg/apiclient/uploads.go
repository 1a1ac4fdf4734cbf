package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
)

const maxUploadBytes int64 = 10 << 20

var allowedUploadTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// UploadsAPI wraps the multipart /upload endpoint.
type UploadsAPI struct {
	r *Resource
}

// UploadImage sends content as the `file` field of a multipart form. The
// content type is sniffed from the bytes, not taken from the file name.
func (u *UploadsAPI) UploadImage(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxUploadBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload content")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload content is empty")
	}
	if int64(len(data)) > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("upload exceeds %d bytes", maxUploadBytes))
	}
	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedUploadTypes...) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported image type %s", detected.String())).
			WithDetails(map[string]any{"allowed": allowedUploadTypes})
	}
	if filepath.Ext(filename) == "" {
		filename += detected.Extension()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", detected.String())
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := part.Write(data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.r.endpoint("", nil), &body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if _, err := u.r.send(req, &result); err != nil {
		return nil, err
	}
	if result.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upload response did not include a url")
	}
	return &result, nil
}
