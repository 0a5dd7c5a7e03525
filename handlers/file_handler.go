package handlers

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"rental_service/domain"
)

const (
	thumbnailSize    = 300
	thumbnailVariant = "thumbnail"
)

// ImageCache stores rendered image variants. Get returns an error on a miss.
type ImageCache interface {
	Get(ctx context.Context, reference string, variant string) ([]byte, error)
	Post(ctx context.Context, reference string, variant string, image []byte) error
}

type FileHandler struct {
	files  domain.FileStore
	cache  ImageCache
	tracer trace.Tracer
	logger *logrus.Logger
}

// NewFileHandler accepts a nil cache.
func NewFileHandler(files domain.FileStore, cache ImageCache, tracer trace.Tracer, logger *logrus.Logger) *FileHandler {
	return &FileHandler{
		files:  files,
		cache:  cache,
		tracer: tracer,
		logger: logger,
	}
}

func (handler *FileHandler) Init(router *mux.Router) {
	router.HandleFunc("/uploads/{reference}", handler.GetFile).Methods(http.MethodGet)
	router.HandleFunc("/uploads/{reference}/thumbnail", handler.GetThumbnail).Methods(http.MethodGet)
}

func (handler *FileHandler) GetFile(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "FileHandler.GetFile")
	defer span.End()

	content, err := handler.resolve(ctx, mux.Vars(req)["reference"])
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	writeFile(writer, mimetype.Detect(content).String(), content)
}

func (handler *FileHandler) GetThumbnail(writer http.ResponseWriter, req *http.Request) {
	ctx, span := handler.tracer.Start(req.Context(), "FileHandler.GetThumbnail")
	defer span.End()

	reference := mux.Vars(req)["reference"]
	if handler.cache != nil {
		if cached, err := handler.cache.Get(ctx, reference, thumbnailVariant); err == nil {
			writeFile(writer, "image/jpeg", cached)
			return
		}
	}

	content, err := handler.resolve(ctx, reference)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeError(writer, req, handler.logger, err)
		return
	}
	thumbnail, err := makeThumbnail(content)
	if err != nil {
		writeError(writer, req, handler.logger, &domain.ValidationError{Message: "file is not an image"})
		return
	}
	if handler.cache != nil {
		_ = handler.cache.Post(ctx, reference, thumbnailVariant, thumbnail)
	}
	writeFile(writer, "image/jpeg", thumbnail)
}

func (handler *FileHandler) resolve(ctx context.Context, reference string) ([]byte, error) {
	return handler.files.Resolve(ctx, domain.FileRef{Kind: domain.StoredFile, Reference: reference})
}

func makeThumbnail(content []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(writer http.ResponseWriter, contentType string, content []byte) {
	writer.Header().Set("Content-Type", contentType)
	writer.Header().Set("Cache-Control", "public, max-age=86400")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(content)
}
