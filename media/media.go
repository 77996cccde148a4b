package media

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// MaxFileSize caps uploads at 5MB, checked before anything leaves the process.
const MaxFileSize = 5 << 20

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImage enforces size and content-type constraints on an uploaded
// file before it is forwarded to the media host.
func ValidateImage(fh *multipart.FileHeader) error {
	if fh.Size > MaxFileSize {
		return fmt.Errorf("file %s exceeds the 5MB limit", fh.Filename)
	}
	contentType := fh.Header.Get("Content-Type")
	if !allowedTypes[contentType] {
		return fmt.Errorf("file type %s is not allowed", contentType)
	}
	return nil
}

// Uploader forwards validated images to the hosted media service and returns
// a transformed delivery URL.
type Uploader interface {
	Upload(ctx context.Context, fh *multipart.FileHeader, folder string, width int) (string, error)
}

// Cloudinary implements Uploader against the Cloudinary API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(url string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, fh *multipart.FileHeader, folder string, width int) (string, error) {
	if err := ValidateImage(fh); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   folder,
		PublicID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}

	img, err := c.cld.Image(resp.PublicID)
	if err != nil {
		return resp.SecureURL, nil
	}
	img.Transformation = fmt.Sprintf("q_auto,f_webp,w_%d", width)

	url, err := img.String()
	if err != nil {
		return resp.SecureURL, nil
	}
	return url, nil
}
