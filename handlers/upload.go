package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mitchellh/mapstructure"
	"rental_service/domain"
)

const (
	maxRequestSize = 60 << 20
	maxMemory      = 10 << 20
	maxFileSize    = 5 << 20
)

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return &domain.ValidationError{Message: "malformed multipart form"}
	}
	return nil
}

// readUploads reads at most max files of one form field. The content type is
// sniffed from the bytes, never taken from the client.
func readUploads(r *http.Request, field string, max int) ([]domain.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) > max {
		return nil, &domain.ValidationError{Field: field, Message: fmt.Sprintf("at most %d files are allowed", max)}
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
		file.Close()
		if err != nil {
			return nil, err
		}
		if len(content) > maxFileSize {
			return nil, &domain.ValidationError{Field: field, Message: "file is too large"}
		}
		if len(content) == 0 {
			continue
		}
		contentType, _, _ := mime.ParseMediaType(mimetype.Detect(content).String())
		uploads = append(uploads, domain.Upload{
			Filename:    header.Filename,
			ContentType: contentType,
			Content:     content,
		})
	}
	return uploads, nil
}

func readUpload(r *http.Request, field string) (*domain.Upload, error) {
	uploads, err := readUploads(r, field, 1)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

// decodeForm copies the non-empty form values into target. Absent and empty
// fields leave pointer fields nil.
func decodeForm(values url.Values, target interface{}) error {
	input := map[string]interface{}{}
	for key, vals := range values {
		if len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			input[key] = strings.TrimSpace(vals[0])
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		if mapErr, ok := err.(*mapstructure.Error); ok && len(mapErr.Errors) > 0 {
			return &domain.ValidationError{Message: mapErr.Errors[0]}
		}
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxMemory))
	if err := decoder.Decode(target); err != nil {
		if err == io.EOF {
			return nil
		}
		return &domain.ValidationError{Message: "malformed JSON body"}
	}
	return nil
}

// decodeBody fills target from a multipart form or a JSON body.
func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) error {
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			return err
		}
		return decodeForm(r.MultipartForm.Value, target)
	}
	return decodeJSON(r, target)
}
