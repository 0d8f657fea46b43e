package mediasrv

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/instrument"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type mediaService struct {
	client *cloudinary.Cloudinary
	ins    *instrument.Instruments
	log    *zap.Logger
}

// Upload implements service.MediaServices.
func (m *mediaService) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	ctx, op := m.ins.Begin(ctx, "service.media.Upload",
		attribute.String("operation", "upload"),
		attribute.String("service", "media"),
	)
	op.Span().SetAttributes(attribute.Int64("file.size", file.Size), attribute.String("media.folder", folder))

	src, err := file.Open()
	if err != nil {
		op.End(err)
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	result, err := m.client.Upload.Upload(ctx, src, uploader.UploadParams{
		Folder:         folder,
		PublicID:       PublicID(file.Filename),
		Overwrite:      func(b bool) *bool { return &b }(false),
		UniqueFilename: func(b bool) *bool { return &b }(false),
	})
	if err == nil && result.Error.Message != "" {
		err = fmt.Errorf("%s", result.Error.Message)
	}
	op.End(err)
	if err != nil {
		m.log.Error("Upload to Cloudinary failed", op.Fields(zap.String("file", file.Filename), zap.Error(err))...)
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}

	m.log.Info("File uploaded", op.Fields(zap.String("public_id", result.PublicID))...)
	return result.SecureURL, nil
}

// PublicID keeps the readable part of the filename and makes it unique.
func PublicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		base = "upload"
	}
	return base + "_" + uuid.NewString()
}

func NewMediaService(client *cloudinary.Cloudinary, meter metric.Meter, tracer trace.Tracer, log *zap.Logger) service.MediaServices {
	return &mediaService{
		client: client,
		ins:    service.NewInstruments(meter, tracer),
		log:    log,
	}
}
