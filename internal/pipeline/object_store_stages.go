package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/framepost/framepost/internal/domain"
	"github.com/framepost/framepost/internal/storage"
)

const SourceTypeS3Presigned = domain.SourceTypeS3Presigned

type ObjectStoreFetcher struct {
	Storage *storage.Client
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if f.Storage == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.EqualFold(req.SourceType, SourceTypeLocalFile) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}
	return f.Storage.ReadObject(ctx, req.ObjectKey)
}

type ObjectStoreEmitter struct {
	Storage      *storage.Client
	OutputPrefix string
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, req Request, data []byte, width, height, quality int) (Output, error) {
	if e.Storage == nil {
		return Output{}, errors.New("storage client is required")
	}

	objectKey := path.Join(
		defaultOutputPrefix(e.OutputPrefix),
		sanitizePathToken(req.JobID),
		outputFilename,
	)

	if err := e.Storage.WriteObject(ctx, objectKey, data, "image/jpeg"); err != nil {
		return Output{}, err
	}

	return Output{
		Format:  "jpeg",
		Path:    objectKey,
		Bytes:   len(data),
		Width:   width,
		Height:  height,
		Quality: quality,
		Success: true,
	}, nil
}

func defaultOutputPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "outputs"
	}
	return prefix
}
